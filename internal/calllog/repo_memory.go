package calllog

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in process memory. It is the default when no
// database is configured and is used by tests.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// List returns up to limit events, newest first.
func (r *MemoryRepo) List(ctx context.Context, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(r.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func (r *MemoryRepo) CountByType(ctx context.Context) (map[EventType]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[EventType]int)
	for _, e := range r.events {
		out[e.Type]++
	}
	return out, nil
}

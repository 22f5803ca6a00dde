package calllog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, limit int) ([]Event, error)
	CountByType(ctx context.Context) (map[EventType]int, error)
}

// Service records call lifecycle events.
// Callers should treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("calllog: invalid event")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("calllog: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.CallSID == "" && e.RecordingSID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogCallStarted(ctx context.Context, callSID, caller string) error {
	return s.Append(ctx, Event{Type: EventCallStarted, CallSID: callSID, Caller: caller})
}

func (s *Service) LogRecording(ctx context.Context, typ EventType, callSID, recordingSID, caller, detail string) error {
	return s.Append(ctx, Event{
		Type:         typ,
		CallSID:      callSID,
		RecordingSID: recordingSID,
		Caller:       caller,
		Detail:       detail,
	})
}

// Recent returns the newest events. limit is clamped to [1, MaxListLimit].
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("calllog: repository not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.repo == nil {
		return Summary{}, errors.New("calllog: repository not configured")
	}
	counts, err := s.repo.CountByType(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Calls:              counts[EventCallStarted],
		RecordingsReceived: counts[EventRecordingReceived],
		RecordingsSaved:    counts[EventRecordingSaved],
		RecordingsFailed:   counts[EventRecordingFailed],
		Duplicates:         counts[EventRecordingDuplicate],
	}, nil
}

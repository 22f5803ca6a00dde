// Package tasks runs detached work outside the request that triggered it.
//
// A task is started with no awaited result. Its error (or panic) stops at the
// runner, which logs it. Wait lets tests and shutdown observe completion.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Func is the unit of detached work. The context is not tied to any request.
type Func func(ctx context.Context) error

type Runner struct {
	log *slog.Logger
	wg  sync.WaitGroup

	// afterFunc is time.AfterFunc, replaceable in tests.
	afterFunc func(d time.Duration, f func())
}

func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log.With("comp", "tasks"), afterFunc: afterFunc}
}

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Go starts fn immediately in the background and returns its task id.
func (r *Runner) Go(name string, fn Func) string {
	return r.After(0, name, fn)
}

// After starts fn once delay has elapsed and returns its task id.
// Scheduled tasks are never cancelled.
func (r *Runner) After(delay time.Duration, name string, fn Func) string {
	id := uuid.NewString()
	r.wg.Add(1)

	run := func() {
		defer r.wg.Done()
		r.run(id, name, fn)
	}
	if delay <= 0 {
		go run()
	} else {
		r.afterFunc(delay, run)
	}
	return id
}

func (r *Runner) run(id, name string, fn Func) {
	log := r.log.With("task", name, "task_id", id)
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn(context.Background())
	}()

	if err != nil {
		log.Error("task failed", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	log.Debug("task done", "duration_ms", time.Since(start).Milliseconds())
}

// Wait blocks until every started or scheduled task has finished, or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

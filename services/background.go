package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reviewflow-backend/utils"
)

// BackgroundRunner executes fire-and-forget work detached from any request.
// Tasks get their own deadline and never report back to the caller; failures
// and panics are logged. Tasks still running at shutdown may be abandoned.
type BackgroundRunner struct {
	log     *utils.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBackgroundRunner(log *utils.Logger, timeout time.Duration) *BackgroundRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackgroundRunner{
		log:     log.With("service", "BackgroundRunner"),
		timeout: timeout,
	}
}

// Go schedules fn on its own goroutine and returns immediately.
func (r *BackgroundRunner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("background task panicked", "task", name, "panic", fmt.Sprint(rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.log.Warn("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all scheduled tasks finish or ctx is done.
func (r *BackgroundRunner) Wait(ctx context.Context) error {
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

package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// flushRequest represents a manual dispatch-pass trigger.
type flushRequest struct {
	done chan error
}

// SchedulerService drives scheduled-message delivery: on a fixed
// interval it queries the store for due pending messages and hands each
// to the Dispatcher. A single goroutine owns the loop, so passes never
// overlap and the same message id is never dispatched concurrently.
type SchedulerService struct {
	messages   driven.MessageStore
	dispatcher *Dispatcher
	interval   time.Duration
	flushCh    chan flushRequest
	now        func() time.Time
}

// NewSchedulerService creates a SchedulerService that polls on the given
// interval.
func NewSchedulerService(messages driven.MessageStore, dispatcher *Dispatcher, interval time.Duration) *SchedulerService {
	return &SchedulerService{
		messages:   messages,
		dispatcher: dispatcher,
		interval:   interval,
		flushCh:    make(chan flushRequest),
		now:        time.Now,
	}
}

// Start begins the delivery loop. It runs an immediate pass to drain
// anything that came due while the process was down, then fires on the
// configured interval. It also listens for manual flush requests. Start
// blocks until the context is canceled; cancellation is the stop signal
// and a second Start on a fresh context resumes cleanly from the store.
func (s *SchedulerService) Start(ctx context.Context) {
	if err := s.processDue(ctx); err != nil {
		slog.Error("initial dispatch pass failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.processDue(ctx); err != nil {
				slog.Error("dispatch pass failed", "error", err)
			}
		case req := <-s.flushCh:
			req.done <- s.processDue(ctx)
		}
	}
}

// Flush triggers an immediate dispatch pass, bypassing the interval. It
// blocks until the pass completes or the context is canceled.
func (s *SchedulerService) Flush(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.flushCh <- flushRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processDue runs one dispatch pass: list everything due, dispatch each
// in order. An individual dispatch failure is already recorded by the
// Dispatcher and must not block sibling messages; only a failing due
// query aborts the pass.
func (s *SchedulerService) processDue(ctx context.Context) error {
	start := s.now()

	due, err := s.messages.ListDue(ctx, start.UTC())
	if err != nil {
		return err
	}

	var failed int
	for _, msg := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			failed++
		}
	}

	if len(due) > 0 {
		slog.Info("dispatch pass complete",
			"due", len(due),
			"failed", failed,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}

	return nil
}

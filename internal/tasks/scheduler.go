package tasks

import (
	"context"
	"log/slog"
	"time"
)

// PeriodicEnqueuer is satisfied by Queue.
type PeriodicEnqueuer interface {
	ExpirePromoCodes(ctx context.Context) (string, error)
}

// Scheduler enqueues the promo expiry sweep once at start and then every Interval.
type Scheduler struct {
	Queue    PeriodicEnqueuer
	Interval time.Duration
	Log      *slog.Logger
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	id, err := s.Queue.ExpirePromoCodes(ctx)
	if err != nil {
		s.Log.Error("enqueue promo sweep failed", "error", err)
		return
	}
	s.Log.Info("promo sweep enqueued", "task_id", id)
}

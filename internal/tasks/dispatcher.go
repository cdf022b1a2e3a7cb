package tasks

import (
	"context"
	"encoding/json"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

type HandlerFunc func(ctx context.Context, env Envelope) error

// Deduper is satisfied by redisx.Deduper.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Dispatcher routes task envelopes from the consumer to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	dedup    Deduper
	log      *slog.Logger
}

func NewDispatcher(dedup Deduper, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[string]HandlerFunc{},
		dedup:    dedup,
		log:      log.With("component", "task-dispatcher"),
	}
}

func (d *Dispatcher) Register(name string, h HandlerFunc) { d.handlers[name] = h }

// Handle is a kafka.Handler. Poison and unknown messages are logged and committed;
// a handler error leaves the offset uncommitted.
func (d *Dispatcher) Handle(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		d.log.Error("drop undecodable task", "partition", m.Partition, "offset", m.Offset, "error", err)
		return nil
	}
	log := d.log.With("task_id", env.TaskID, "task", env.TaskName)

	h, ok := d.handlers[env.TaskName]
	if !ok {
		log.Warn("no handler registered, skipping")
		return nil
	}

	if d.dedup != nil && env.TaskID != "" {
		first, err := d.dedup.Claim(ctx, env.TaskID)
		if err != nil {
			// redis mati: lebih baik proses dua kali daripada tidak sama sekali
			log.Warn("dedup claim failed", "error", err)
		} else if !first {
			log.Info("duplicate task, skipping")
			return nil
		}
	}

	if err := h(ctx, env); err != nil {
		if d.dedup != nil && env.TaskID != "" {
			if rerr := d.dedup.Release(ctx, env.TaskID); rerr != nil {
				log.Warn("dedup release failed", "error", rerr)
			}
		}
		return err
	}
	log.Debug("task done")
	return nil
}

package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *slog.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:         r,
		workers:   workers,
		log:       log.With("component", "kafka-consumer", "topic", topic, "group", group),
		retryBase: 200 * time.Millisecond,
		retryMax:  30 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the reader fails. Workers are drained before it returns.
//
// Each partition is pinned to one worker, so offsets are committed in order. A failing
// message is retried in place and holds back the rest of its partition until it succeeds;
// on shutdown it stays uncommitted and is redelivered.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if err := handleWithRetry(ctx, h, m, c.retryBase, c.retryMax, c.log); err != nil {
					// ctx selesai; offset tidak di-commit, pesan dikirim ulang nanti
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "error", err)
				}
			}
		}(lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// shutdown biasa, bukan error
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[laneFor(m.Partition, len(lanes))] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// laneFor maps a partition to a worker index.
func laneFor(partition, lanes int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % lanes
}

// handleWithRetry calls h until it succeeds, backing off exponentially between attempts.
// It returns ctx.Err() once ctx is done and the message was not handled.
func handleWithRetry(ctx context.Context, h Handler, m kafka.Message, wait, maxWait time.Duration, log *slog.Logger) error {
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("handler failed, retrying",
			"partition", m.Partition, "offset", m.Offset, "attempt", attempt, "retry_in", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > maxWait {
			wait = maxWait
		}
	}
}

package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("producer closed")

// Producer buffers messages in an inbox and writes them from a single goroutine.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     *slog.Logger

	// stopping is closed first on shutdown so publishers blocked on a full inbox let go
	// of the read lock before the inbox is closed.
	stopping chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log *slog.Logger) *Producer {
	p := &Producer{
		inbox:    make(chan kafka.Message, buf),
		closeCh:  make(chan struct{}),
		stopping: make(chan struct{}),
		log:      log.With("component", "kafka-producer", "topic", topic),
	}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.log.Error("kafka write failed", "messages", len(msgs), "error", err)
			}
		},
	}
	return p
}

// Start jalankan loop writer. Loop berhenti saat ctx selesai atau Close dipanggil;
// sisa pesan di inbox di-flush dulu.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.shutdown()
				for m := range p.inbox {
					p.write(m)
				}
				p.closeWriter()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.closeWriter()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Error("kafka enqueue failed", "key", string(m.Key), "error", err)
	}
}

func (p *Producer) closeWriter() {
	if err := p.w.Close(); err != nil {
		p.log.Error("kafka writer close", "error", err)
	}
}

// Publish enqueues a message. It blocks while the inbox is full until ctx is done
// or the producer shuts down.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return nil
	case <-p.stopping:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; the writer goroutine flushes the rest and exits.
func (p *Producer) Close() { p.shutdown() }

func (p *Producer) shutdown() {
	p.stopOnce.Do(func() { close(p.stopping) })
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the writer goroutine has finished.
func (p *Producer) WaitClosed() { <-p.closeCh }

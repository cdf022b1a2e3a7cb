package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

type Queue struct {
	pub      Publisher
	producer string
	now      func() time.Time
}

func NewQueue(pub Publisher, producer string) *Queue {
	return &Queue{pub: pub, producer: producer, now: time.Now}
}

// Enqueue wraps payload in an Envelope and publishes it keyed by key. It returns the task id.
func (q *Queue) Enqueue(ctx context.Context, name, key string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", name, err)
	}
	env := Envelope{
		TaskID:        uuid.NewString(),
		TaskName:      name,
		TaskVersion:   1,
		EnqueuedAt:    q.now().UTC(),
		Producer:      q.producer,
		CorrelationID: key,
		Payload:       raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	err = q.pub.Publish(ctx, []byte(key), value,
		kafkago.Header{Key: "x-task-name", Value: []byte(name)},
		kafkago.Header{Key: "x-task-version", Value: []byte("1")},
	)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return env.TaskID, nil
}

// OrderPlaced enqueues the confirmation email for o.
func (q *Queue) OrderPlaced(ctx context.Context, o *orders.Order) error {
	_, err := q.Enqueue(ctx, TaskSendOrderConfirmation, strconv.FormatInt(o.ID, 10), ConfirmationPayload(o))
	return err
}

func (q *Queue) ExpirePromoCodes(ctx context.Context) (string, error) {
	now := q.now().UTC()
	return q.Enqueue(ctx, TaskExpirePromoCodes, TaskExpirePromoCodes, ExpirePromoCodesPayload{ScheduledAt: now})
}

func ConfirmationPayload(o *orders.Order) OrderConfirmationPayload {
	items := make([]EmailItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EmailItem{ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return OrderConfirmationPayload{
		OrderID:       o.ID,
		UserEmail:     o.User.Email,
		UserFirstName: o.User.FirstName,
		Items:         items,
		TotalPrice:    o.TotalPrice.StringFixed(2),
		Discount:      o.Discount.StringFixed(2),
	}
}

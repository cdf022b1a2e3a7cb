package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TaskSendOrderConfirmation = "send_order_confirmation_email"
	TaskExpirePromoCodes      = "expire_promo_codes"
)

type Envelope struct {
	TaskID        string          `json:"task_id"`      // uuid
	TaskName      string          `json:"task_name"`    // salah satu const di atas
	TaskVersion   int             `json:"task_version"` // 1
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	Producer      string          `json:"producer"` // e.g. "order-api", "order-scheduler"
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per task ----

type EmailItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type OrderConfirmationPayload struct {
	OrderID       int64       `json:"order_id"`
	UserEmail     string      `json:"user_email"`
	UserFirstName string      `json:"user_first_name"`
	Items         []EmailItem `json:"items"`
	TotalPrice    string      `json:"total_price"`
	Discount      string      `json:"discount"`
}

type ExpirePromoCodesPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func DecodePayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.TaskName, err)
	}
	return t, nil
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TypeOrderReceipt is the asynq task type for post-checkout receipts.
const TypeOrderReceipt = "order:receipt"

// QueueNotifications is the asynq queue receipts are published to.
const QueueNotifications = "notifications"

// ReceiptLine is one billed line on the receipt. DisplaySize is what the
// customer saw; ChargedSize is what they paid for.
type ReceiptLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	DisplaySize string `json:"display_size,omitempty"`
	ChargedSize string `json:"charged_size,omitempty"`
	LineTotal   int64  `json:"line_total"`
}

// ReceiptPayload is the serialized task body for an order receipt.
type ReceiptPayload struct {
	OrderID        string        `json:"order_id"`
	PromoCode      string        `json:"promo_code,omitempty"`
	SubtotalBefore int64         `json:"subtotal_before"`
	DiscountTotal  int64         `json:"discount_total"`
	GrandTotal     int64         `json:"grand_total"`
	Currency       string        `json:"currency"`
	Lines          []ReceiptLine `json:"lines"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewReceiptTask builds the asynq task for a receipt payload.
func NewReceiptTask(payload ReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	return asynq.NewTask(TypeOrderReceipt, data,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer publishes receipt tasks. A nil Client disables publishing so
// the order path keeps working without a queue.
type Enqueuer struct {
	Client *asynq.Client
	Log    zerolog.Logger
}

// EnqueueOrderReceipt publishes a receipt task for the order.
func (e Enqueuer) EnqueueOrderReceipt(ctx context.Context, payload ReceiptPayload) error {
	if e.Client == nil {
		return nil
	}
	task, err := NewReceiptTask(payload)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue receipt: %w", err)
	}
	e.Log.Debug().
		Str("task_id", info.ID).
		Str("order_id", payload.OrderID).
		Msg("receipt task enqueued")
	return nil
}

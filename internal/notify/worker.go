package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// ReceiptWorker renders order receipts on the worker side. Today that
// means formatting and logging the receipt; a printer or email transport
// plugs in behind the same handler.
type ReceiptWorker struct {
	Log zerolog.Logger
}

// Register attaches the worker's handlers to the mux.
func (w ReceiptWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderReceipt, w.HandleOrderReceipt)
}

// HandleOrderReceipt processes one receipt task.
func (w ReceiptWorker) HandleOrderReceipt(_ context.Context, task *asynq.Task) error {
	var payload ReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never become valid; skip retries.
		return fmt.Errorf("unmarshal receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == "" {
		return fmt.Errorf("receipt payload missing order id: %w", asynq.SkipRetry)
	}

	w.Log.Info().
		Str("order_id", payload.OrderID).
		Str("promo_code", payload.PromoCode).
		Int64("grand_total", payload.GrandTotal).
		Str("currency", payload.Currency).
		Str("receipt", RenderReceipt(payload)).
		Msg("order receipt processed")
	return nil
}

// RenderReceipt formats the payload as a plain-text receipt.
func RenderReceipt(p ReceiptPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ORDER %s\n", p.OrderID)
	for _, line := range p.Lines {
		size := line.ChargedSize
		if line.DisplaySize != "" && line.DisplaySize != line.ChargedSize {
			size = fmt.Sprintf("%s (charged as %s)", line.DisplaySize, line.ChargedSize)
		}
		fmt.Fprintf(&b, "%dx %s %s = %d\n", line.Quantity, line.ProductName, size, line.LineTotal)
	}
	fmt.Fprintf(&b, "subtotal %d\n", p.SubtotalBefore)
	if p.DiscountTotal > 0 {
		fmt.Fprintf(&b, "discount -%d", p.DiscountTotal)
		if p.PromoCode != "" {
			fmt.Fprintf(&b, " (%s)", p.PromoCode)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "total %d %s\n", p.GrandTotal, p.Currency)
	return b.String()
}

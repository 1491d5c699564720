package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// TxBeginner starts pgx transactions; satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderRecord is the persisted order header. All money fields come from
// the server-side quote recomputation, never from the client.
type OrderRecord struct {
	ID             uuid.UUID
	PromoCode      *string
	SubtotalBefore int64
	DiscountTotal  int64
	GrandTotal     int64
	Currency       string
	CreatedAt      time.Time
}

// OrderLineRecord snapshots one quoted line. DisplaySize is what the
// customer was shown; ChargedSize and UnitPriceAfter are the authoritative
// billed values.
type OrderLineRecord struct {
	LineID          string
	ProductID       uuid.UUID
	Quantity        int32
	DisplaySize     string
	ChargedSize     string
	UnitPriceBefore int64
	UnitPriceAfter  int64
	LineTotalBefore int64
	LineTotalAfter  int64
	Adjustments     any
}

// OrderRepo persists orders transactionally.
type OrderRepo struct {
	Pool TxBeginner
}

// Create inserts the order header and all lines in one transaction.
func (r OrderRepo) Create(ctx context.Context, order OrderRecord, lines []OrderLineRecord) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var promoCode pgtype.Text
	if order.PromoCode != nil {
		promoCode = pgtype.Text{String: *order.PromoCode, Valid: true}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, promo_code, subtotal_before, discount_total, grand_total, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pgtype.UUID{Bytes: order.ID, Valid: true},
		promoCode,
		order.SubtotalBefore,
		order.DiscountTotal,
		order.GrandTotal,
		order.Currency,
		pgtype.Timestamptz{Time: order.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range lines {
		adjustments, err := json.Marshal(line.Adjustments)
		if err != nil {
			return fmt.Errorf("marshal adjustments: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (
				order_id, line_id, product_id, quantity,
				display_size_key, charged_size_key,
				unit_price_before, unit_price_after,
				line_total_before, line_total_after, adjustments
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			pgtype.UUID{Bytes: order.ID, Valid: true},
			line.LineID,
			pgtype.UUID{Bytes: line.ProductID, Valid: true},
			line.Quantity,
			line.DisplaySize,
			line.ChargedSize,
			line.UnitPriceBefore,
			line.UnitPriceAfter,
			line.LineTotalBefore,
			line.LineTotalAfter,
			adjustments,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", line.LineID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

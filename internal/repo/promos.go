package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// PromotionRow mirrors the promotions table.
type PromotionRow struct {
	ID         uuid.UUID
	Code       string
	Kind       string
	PercentOff int32
	MinQty     int32
	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool
}

// ScopeRow mirrors one promotion_scopes row. ScopeType is one of
// include_category, exclude_category, include_product.
type ScopeRow struct {
	ScopeType    string
	CategoryCode *string
	ProductID    *uuid.UUID
}

// Scope row type discriminators.
const (
	ScopeIncludeCategory = "include_category"
	ScopeExcludeCategory = "exclude_category"
	ScopeIncludeProduct  = "include_product"
)

// PromoRepo reads promotion records and their scope rows.
type PromoRepo struct {
	DB DB
}

// GetByCode fetches a promotion by its public code.
func (r PromoRepo) GetByCode(ctx context.Context, code string) (PromotionRow, error) {
	var (
		row  PromotionRow
		pid  pgtype.UUID
		from pgtype.Timestamptz
		till pgtype.Timestamptz
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, code, kind, percent_off, min_qty, valid_from, valid_until, is_active
		FROM promotions
		WHERE code = $1`, code).
		Scan(&pid, &row.Code, &row.Kind, &row.PercentOff, &row.MinQty, &from, &till, &row.IsActive)
	if err != nil {
		// pgx.ErrNoRows passes through for callers to translate.
		return PromotionRow{}, fmt.Errorf("get promotion: %w", err)
	}
	row.ID = uuid.UUID(pid.Bytes)
	if from.Valid {
		row.ValidFrom = &from.Time
	}
	if till.Valid {
		row.ValidUntil = &till.Time
	}
	return row, nil
}

// ListScopes returns the scope rows attached to a promotion.
func (r PromoRepo) ListScopes(ctx context.Context, promotionID uuid.UUID) ([]ScopeRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT scope_type, category_code, product_id
		FROM promotion_scopes
		WHERE promotion_id = $1`, pgtype.UUID{Bytes: promotionID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("list promotion scopes: %w", err)
	}
	defer rows.Close()

	var out []ScopeRow
	for rows.Next() {
		var (
			row  ScopeRow
			code pgtype.Text
			pid  pgtype.UUID
		)
		if err := rows.Scan(&row.ScopeType, &code, &pid); err != nil {
			return nil, fmt.Errorf("scan promotion scope: %w", err)
		}
		if code.Valid {
			row.CategoryCode = &code.String
		}
		if pid.Valid {
			id := uuid.UUID(pid.Bytes)
			row.ProductID = &id
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

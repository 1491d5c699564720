package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB captures the pgx methods the repositories need, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProductRow is a catalog read-model row. CategoryCode holds the
// structured category when present; LegacyCategory the free-text fallback.
type ProductRow struct {
	ID             uuid.UUID
	Name           string
	CategoryCode   *string
	LegacyCategory *string
}

// VariantPriceRow is one structured per-(product, size) price.
type VariantPriceRow struct {
	ProductID uuid.UUID
	SizeKey   string
	UnitPrice int64
}

// LegacyPriceRow is one legacy per-(product, price-key) price.
type LegacyPriceRow struct {
	ProductID uuid.UUID
	PriceKey  string
	UnitPrice int64
}

// CatalogRepo reads catalog snapshots for the quote path and the list
// endpoints. All methods return plain slices; callers own indexing.
type CatalogRepo struct {
	DB DB
}

// ListProductsByIDs returns the referenced products. Missing ids simply
// produce no row; the quote engine treats them as UNKNOWN category and an
// unresolvable price.
func (r CatalogRepo) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]ProductRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category_code, legacy_category
		FROM products
		WHERE id = ANY($1)`, uuidSlice(ids))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListProducts returns a page of the catalog ordered by name.
func (r CatalogRepo) ListProducts(ctx context.Context, limit, offset int32) ([]ProductRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category_code, legacy_category
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListVariantPrices returns the structured pricing tier for the products.
func (r CatalogRepo) ListVariantPrices(ctx context.Context, ids []uuid.UUID) ([]VariantPriceRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, size_key, unit_price
		FROM product_variant_prices
		WHERE product_id = ANY($1)`, uuidSlice(ids))
	if err != nil {
		return nil, fmt.Errorf("list variant prices: %w", err)
	}
	defer rows.Close()

	var out []VariantPriceRow
	for rows.Next() {
		var (
			pid pgtype.UUID
			row VariantPriceRow
		)
		if err := rows.Scan(&pid, &row.SizeKey, &row.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan variant price: %w", err)
		}
		row.ProductID = uuid.UUID(pid.Bytes)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListLegacyPrices returns the legacy pricing tier for the products.
func (r CatalogRepo) ListLegacyPrices(ctx context.Context, ids []uuid.UUID) ([]LegacyPriceRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, price_key, unit_price
		FROM legacy_prices
		WHERE product_id = ANY($1)`, uuidSlice(ids))
	if err != nil {
		return nil, fmt.Errorf("list legacy prices: %w", err)
	}
	defer rows.Close()

	var out []LegacyPriceRow
	for rows.Next() {
		var (
			pid pgtype.UUID
			row LegacyPriceRow
		)
		if err := rows.Scan(&pid, &row.PriceKey, &row.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan legacy price: %w", err)
		}
		row.ProductID = uuid.UUID(pid.Bytes)
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanProducts(rows pgx.Rows) ([]ProductRow, error) {
	var out []ProductRow
	for rows.Next() {
		var (
			pid    pgtype.UUID
			name   string
			code   pgtype.Text
			legacy pgtype.Text
		)
		if err := rows.Scan(&pid, &name, &code, &legacy); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		row := ProductRow{ID: uuid.UUID(pid.Bytes), Name: name}
		if code.Valid {
			row.CategoryCode = &code.String
		}
		if legacy.Valid {
			row.LegacyCategory = &legacy.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func uuidSlice(ids []uuid.UUID) []pgtype.UUID {
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, pgtype.UUID{Bytes: id, Valid: true})
	}
	return out
}

package quote

import (
	"github.com/google/uuid"

	"github.com/quangngluu/backend-pos/internal/money"
)

// PriceRow is a single pre-fetched price entry from either pricing tier.
type PriceRow struct {
	ProductID uuid.UUID
	SizeKey   SizeKey
	UnitPrice money.Money
}

// LegacyPriceRow carries the free-text price key of the legacy table. The
// key is mapped through ParseSizeKey at index build time; rows whose key
// cannot be mapped are dropped rather than misfiled under another size.
type LegacyPriceRow struct {
	ProductID uuid.UUID
	PriceKey  string
	UnitPrice money.Money
}

type priceKey struct {
	productID uuid.UUID
	size      SizeKey
}

// PriceResolver answers unit-price lookups with the structured-over-legacy
// precedence applied once, at construction: if a product has at least one
// structured variant price, legacy rows for that product are never indexed,
// so partial structured pricing cannot be topped up from the legacy tier.
type PriceResolver struct {
	prices     map[priceKey]money.Money
	structured map[uuid.UUID]bool
}

// NewPriceResolver builds a resolver from pre-fetched snapshots of both
// pricing tiers.
func NewPriceResolver(variantPrices []PriceRow, legacyPrices []LegacyPriceRow) *PriceResolver {
	r := &PriceResolver{
		prices:     make(map[priceKey]money.Money, len(variantPrices)+len(legacyPrices)),
		structured: make(map[uuid.UUID]bool),
	}
	for _, row := range variantPrices {
		if !row.SizeKey.Valid() || row.UnitPrice < 0 {
			continue
		}
		r.structured[row.ProductID] = true
		r.prices[priceKey{row.ProductID, row.SizeKey}] = row.UnitPrice
	}
	for _, row := range legacyPrices {
		if r.structured[row.ProductID] {
			continue
		}
		size, ok := ParseSizeKey(row.PriceKey)
		if !ok || row.UnitPrice < 0 {
			continue
		}
		key := priceKey{row.ProductID, size}
		if _, exists := r.prices[key]; exists {
			continue
		}
		r.prices[key] = row.UnitPrice
	}
	return r
}

// Lookup returns the authoritative unit price for the product and size.
// Absence is a valid outcome and is never defaulted to zero or to another
// size's price.
func (r *PriceResolver) Lookup(productID uuid.UUID, size SizeKey) (money.Money, bool) {
	if r == nil {
		return 0, false
	}
	price, ok := r.prices[priceKey{productID, size}]
	return price, ok
}

// HasStructured reports whether the product carries any structured variant
// pricing, i.e. whether the legacy tier is shadowed for it.
func (r *PriceResolver) HasStructured(productID uuid.UUID) bool {
	if r == nil {
		return false
	}
	return r.structured[productID]
}

package promo

import (
	"github.com/google/uuid"

	"github.com/quangngluu/backend-pos/internal/catalog"
)

// Scope is the set of categories and products a promotion may touch.
type Scope struct {
	IncludedCategories map[catalog.Category]bool
	ExcludedCategories map[catalog.Category]bool
	IncludedProductIDs map[uuid.UUID]bool
}

// NewScope builds a Scope from row slices.
func NewScope(included, excluded []catalog.Category, productIDs []uuid.UUID) Scope {
	s := Scope{
		IncludedCategories: make(map[catalog.Category]bool, len(included)),
		ExcludedCategories: make(map[catalog.Category]bool, len(excluded)),
		IncludedProductIDs: make(map[uuid.UUID]bool, len(productIDs)),
	}
	for _, c := range included {
		if c.Known() {
			s.IncludedCategories[c] = true
		}
	}
	for _, c := range excluded {
		if c.Known() {
			s.ExcludedCategories[c] = true
		}
	}
	for _, id := range productIDs {
		s.IncludedProductIDs[id] = true
	}
	return s
}

// IsEmpty reports that the scope carries no restriction rows at all.
func (s Scope) IsEmpty() bool {
	return len(s.IncludedCategories) == 0 &&
		len(s.ExcludedCategories) == 0 &&
		len(s.IncludedProductIDs) == 0
}

// HasIncludes reports whether the effective include-scope is non-empty.
// A promotion whose include-scope is empty applies to nothing; it must
// never silently widen to the whole order.
func (s Scope) HasIncludes() bool {
	return len(s.IncludedCategories) > 0 || len(s.IncludedProductIDs) > 0
}

// Eligible decides whether a line with the given product and canonical
// category falls inside the scope. Decision order:
//
//  1. UNKNOWN categories are never eligible.
//  2. An empty include-scope makes everything ineligible.
//  3. Category exclusion is a hard veto, even for explicitly included
//     products.
//  4. Otherwise explicit product inclusion wins, then category inclusion.
func (s Scope) Eligible(productID uuid.UUID, category catalog.Category) bool {
	if !category.Known() {
		return false
	}
	if !s.HasIncludes() {
		return false
	}
	if s.ExcludedCategories[category] {
		return false
	}
	if s.IncludedProductIDs[productID] {
		return true
	}
	return s.IncludedCategories[category]
}

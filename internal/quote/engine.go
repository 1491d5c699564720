package quote

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quangngluu/backend-pos/internal/catalog"
	"github.com/quangngluu/backend-pos/internal/money"
	"github.com/quangngluu/backend-pos/internal/promo"
)

// ErrNoLines is the only terminal failure of a quote computation: a
// structurally empty request. Per-line problems are recovered into the
// line's own result instead.
var ErrNoLines = errors.New("quote requires at least one line")

// AdjustmentKind names the two supported adjustment behaviours.
type AdjustmentKind string

const (
	// AdjustmentFreeUpsize records a size-upgrade substitution: the larger
	// size is displayed while the smaller size's price is charged.
	AdjustmentFreeUpsize AdjustmentKind = "FREE_UPSIZE"
	// AdjustmentPercentDiscount records a percentage discount on the
	// charged unit price.
	AdjustmentPercentDiscount AdjustmentKind = "PERCENT_DISCOUNT"
)

// Line is a caller-assembled draft order line. LineID is the correlation
// key for the result; it must be distinct even when ProductID repeats.
type Line struct {
	LineID    string
	ProductID uuid.UUID
	Quantity  int
	Size      SizeKey
}

// Adjustment is one named saving applied to a line.
type Adjustment struct {
	Kind   AdjustmentKind `json:"kind"`
	Amount money.Money    `json:"amount"`
}

// ResultLine is the per-line outcome of a quote computation.
type ResultLine struct {
	LineID          string       `json:"line_id"`
	ProductID       uuid.UUID    `json:"product_id"`
	Quantity        int          `json:"quantity"`
	DisplaySize     SizeKey      `json:"display_size_key,omitempty"`
	ChargedSize     SizeKey      `json:"charged_size_key,omitempty"`
	UnitPriceBefore money.Money  `json:"unit_price_before"`
	UnitPriceAfter  money.Money  `json:"unit_price_after"`
	LineTotalBefore money.Money  `json:"line_total_before"`
	LineTotalAfter  money.Money  `json:"line_total_after"`
	Adjustments     []Adjustment `json:"adjustments,omitempty"`
	MissingPrice    bool         `json:"missing_price"`
}

// Result aggregates line outcomes and order totals. Lines are reported in
// input order; a missing price on one line never aborts the others.
type Result struct {
	Lines           []ResultLine `json:"lines"`
	SubtotalBefore  money.Money  `json:"subtotal_before"`
	DiscountTotal   money.Money  `json:"discount_total"`
	GrandTotal      money.Money  `json:"grand_total"`
	UpsizeApplied   bool         `json:"upsize_applied"`
	DiscountPercent int          `json:"discount_percent"`
	EligibleQty     int          `json:"eligible_qty"`
	Debug           *Debug       `json:"debug,omitempty"`
}

// Debug carries diagnostic fields attached only when the engine runs in
// verbose mode, so the output shape stays deterministic and testable.
type Debug struct {
	PromoCode       string          `json:"promo_code,omitempty"`
	PromoActive     bool            `json:"promo_active"`
	PromoSkipReason string          `json:"promo_skip_reason,omitempty"`
	ScopeRestricted bool            `json:"scope_restricted"`
	LineEligibility map[string]bool `json:"line_eligibility,omitempty"`
}

// HasMissingPrice reports whether any line could not be priced.
func (r Result) HasMissingPrice() bool {
	for _, line := range r.Lines {
		if line.MissingPrice {
			return true
		}
	}
	return false
}

// MissingLineIDs returns the correlation keys of unpriceable lines.
func (r Result) MissingLineIDs() []string {
	var ids []string
	for _, line := range r.Lines {
		if line.MissingPrice {
			ids = append(ids, line.LineID)
		}
	}
	return ids
}

// Engine computes quotes over data supplied by the caller. It performs no
// I/O, holds no cross-invocation state, and is safe for concurrent use
// once constructed.
type Engine struct {
	Resolver   *PriceResolver
	Categories map[uuid.UUID]catalog.Category
	Promo      *promo.Promotion
	Now        func() time.Time
	Verbose    bool
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) category(productID uuid.UUID) catalog.Category {
	if c, ok := e.Categories[productID]; ok && c.Known() {
		return c
	}
	return catalog.CategoryUnknown
}

// Quote runs the single-pass computation over the provided lines.
func (e *Engine) Quote(lines []Line) (Result, error) {
	if len(lines) == 0 {
		return Result{}, ErrNoLines
	}

	result := Result{Lines: make([]ResultLine, 0, len(lines))}

	active := e.Promo
	skipReason := ""
	if active != nil {
		if !active.Kind.Valid() {
			active, skipReason = nil, "unknown promotion kind"
		} else if err := active.ValidateWindow(e.now()); err != nil {
			active, skipReason = nil, err.Error()
		}
	}

	// The legacy counting asymmetry: an entirely unrestricted Rule
	// promotion counts every priced drink line toward the threshold, while
	// any scope row narrows the count to evaluator-passing lines.
	restricted := active != nil && !active.Scope.IsEmpty()
	lineCounts := func(ln Line, cat catalog.Category) bool {
		if cat != catalog.CategoryDrink {
			return false
		}
		if !restricted {
			return true
		}
		return active.Scope.Eligible(ln.ProductID, cat)
	}

	upsizeArmed := false
	if active != nil && active.Kind == promo.KindRule {
		for _, ln := range lines {
			cat := e.category(ln.ProductID)
			if _, ok := e.Resolver.Lookup(ln.ProductID, ln.Size); !ok {
				continue
			}
			if lineCounts(ln, cat) {
				result.EligibleQty += ln.Quantity
			}
		}
		upsizeArmed = result.EligibleQty >= active.MinQty && result.EligibleQty > 0
	}

	var debug *Debug
	if e.Verbose {
		debug = &Debug{
			PromoActive:     active != nil,
			PromoSkipReason: skipReason,
			ScopeRestricted: restricted,
			LineEligibility: make(map[string]bool, len(lines)),
		}
		if e.Promo != nil {
			debug.PromoCode = e.Promo.Code
		}
	}

	for _, ln := range lines {
		cat := e.category(ln.ProductID)

		base, ok := e.Resolver.Lookup(ln.ProductID, ln.Size)
		if !ok {
			result.Lines = append(result.Lines, ResultLine{
				LineID:       ln.LineID,
				ProductID:    ln.ProductID,
				Quantity:     ln.Quantity,
				MissingPrice: true,
			})
			continue
		}

		out := ResultLine{
			LineID:      ln.LineID,
			ProductID:   ln.ProductID,
			Quantity:    ln.Quantity,
			DisplaySize: ln.Size,
			ChargedSize: ln.Size,
		}
		displayUnit := base
		chargedUnit := base

		if upsizeArmed && ln.Size == SizePhe && lineCounts(ln, cat) {
			phe, okPhe := e.Resolver.Lookup(ln.ProductID, SizePhe)
			la, okLa := e.Resolver.Lookup(ln.ProductID, SizeLa)
			// Equal prices make the substitution worthless; skip it so no
			// zero-amount adjustment is itemised.
			if okPhe && okLa && la > phe {
				out.DisplaySize = SizeLa
				out.ChargedSize = SizePhe
				displayUnit = la
				chargedUnit = phe
				out.Adjustments = append(out.Adjustments, Adjustment{
					Kind:   AdjustmentFreeUpsize,
					Amount: money.Multiply(la-phe, ln.Quantity),
				})
				result.UpsizeApplied = true
			}
		}

		discountEligible := active != nil && active.PercentOff > 0 &&
			active.Scope.Eligible(ln.ProductID, cat)
		if debug != nil {
			debug.LineEligibility[ln.LineID] = discountEligible
		}
		if discountEligible {
			after := money.ApplyPercent(chargedUnit, active.PercentOff)
			if after < chargedUnit {
				out.Adjustments = append(out.Adjustments, Adjustment{
					Kind:   AdjustmentPercentDiscount,
					Amount: money.Multiply(chargedUnit-after, ln.Quantity),
				})
				chargedUnit = after
				result.DiscountPercent = active.PercentOff
			}
		}

		out.UnitPriceBefore = displayUnit
		out.UnitPriceAfter = chargedUnit
		out.LineTotalBefore = money.Multiply(displayUnit, ln.Quantity)
		out.LineTotalAfter = money.Multiply(chargedUnit, ln.Quantity)
		result.Lines = append(result.Lines, out)

		result.SubtotalBefore += out.LineTotalBefore
		for _, adj := range out.Adjustments {
			result.DiscountTotal += adj.Amount
		}
	}

	result.GrandTotal = money.Clamp(result.SubtotalBefore - result.DiscountTotal)
	result.Debug = debug
	return result, nil
}

package quote

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quangngluu/backend-pos/internal/catalog"
	"github.com/quangngluu/backend-pos/internal/money"
	"github.com/quangngluu/backend-pos/internal/promo"
)

var testNow = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func newEngine(resolver *PriceResolver, cats map[uuid.UUID]catalog.Category, p *promo.Promotion) *Engine {
	return &Engine{
		Resolver:   resolver,
		Categories: cats,
		Promo:      p,
		Now:        func() time.Time { return testNow },
	}
}

func drinkProduct() (uuid.UUID, *PriceResolver, map[uuid.UUID]catalog.Category) {
	id := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: id, SizeKey: SizePhe, UnitPrice: 54000},
		{ProductID: id, SizeKey: SizeLa, UnitPrice: 69000},
	}, nil)
	return id, resolver, map[uuid.UUID]catalog.Category{id: catalog.CategoryDrink}
}

func freeUpsizePromo(minQty int) *promo.Promotion {
	return &promo.Promotion{
		Code:     "FREE_UPSIZE_5",
		Kind:     promo.KindRule,
		MinQty:   minQty,
		IsActive: true,
	}
}

func TestQuoteFreeUpsizeAtThreshold(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	engine := newEngine(resolver, cats, freeUpsizePromo(5))

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 5, Size: SizePhe}})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)

	line := result.Lines[0]
	require.False(t, line.MissingPrice)
	require.Equal(t, SizeLa, line.DisplaySize)
	require.Equal(t, SizePhe, line.ChargedSize)
	require.Equal(t, int64(69000), line.UnitPriceBefore)
	require.Equal(t, int64(54000), line.UnitPriceAfter)
	require.LessOrEqual(t, line.UnitPriceAfter, line.UnitPriceBefore)
	require.Len(t, line.Adjustments, 1)
	require.Equal(t, AdjustmentFreeUpsize, line.Adjustments[0].Kind)
	require.Equal(t, int64((69000-54000)*5), line.Adjustments[0].Amount)

	require.True(t, result.UpsizeApplied)
	require.Equal(t, 5, result.EligibleQty)
	require.Equal(t, int64(345000), result.SubtotalBefore)
	require.Equal(t, int64(75000), result.DiscountTotal)
	require.Equal(t, int64(270000), result.GrandTotal)
}

func TestQuoteBelowThresholdNoSubstitution(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	engine := newEngine(resolver, cats, freeUpsizePromo(5))

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 4, Size: SizePhe}})
	require.NoError(t, err)

	line := result.Lines[0]
	require.Equal(t, SizePhe, line.DisplaySize)
	require.Equal(t, SizePhe, line.ChargedSize)
	require.Equal(t, int64(54000), line.UnitPriceBefore)
	require.Equal(t, int64(54000), line.UnitPriceAfter)
	require.Empty(t, line.Adjustments)
	require.False(t, result.UpsizeApplied)
}

func TestQuoteEqualPricesSkipSubstitution(t *testing.T) {
	id := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: id, SizeKey: SizePhe, UnitPrice: 54000},
		{ProductID: id, SizeKey: SizeLa, UnitPrice: 54000},
	}, nil)
	cats := map[uuid.UUID]catalog.Category{id: catalog.CategoryDrink}
	engine := newEngine(resolver, cats, freeUpsizePromo(5))

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: id, Quantity: 5, Size: SizePhe}})
	require.NoError(t, err)

	line := result.Lines[0]
	require.Equal(t, SizePhe, line.DisplaySize)
	require.Equal(t, SizePhe, line.ChargedSize)
	require.Empty(t, line.Adjustments, "a worthless substitution must not be itemised")
	require.False(t, result.UpsizeApplied)
	require.Equal(t, int64(0), result.DiscountTotal)
	require.Equal(t, int64(270000), result.GrandTotal)
}

func TestQuoteDiscountScopedToDrinks(t *testing.T) {
	drinkID, _, _ := drinkProduct()
	cakeID := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: drinkID, SizeKey: SizePhe, UnitPrice: 54000},
		{ProductID: cakeID, SizeKey: SizeStandard, UnitPrice: 30000},
	}, nil)
	cats := map[uuid.UUID]catalog.Category{
		drinkID: catalog.CategoryDrink,
		cakeID:  catalog.CategoryCake,
	}
	p := &promo.Promotion{
		Code:       "DISCOUNT20_DRINK",
		Kind:       promo.KindDiscount,
		PercentOff: 20,
		IsActive:   true,
		Scope:      promo.NewScope([]catalog.Category{catalog.CategoryDrink}, nil, nil),
	}
	engine := newEngine(resolver, cats, p)

	result, err := engine.Quote([]Line{
		{LineID: "drink", ProductID: drinkID, Quantity: 1, Size: SizePhe},
		{LineID: "cake", ProductID: cakeID, Quantity: 2, Size: SizeStandard},
	})
	require.NoError(t, err)

	drink := result.Lines[0]
	require.Equal(t, int64(43200), drink.UnitPriceAfter)
	require.Len(t, drink.Adjustments, 1)
	require.Equal(t, AdjustmentPercentDiscount, drink.Adjustments[0].Kind)
	require.Equal(t, int64(10800), drink.Adjustments[0].Amount)

	cake := result.Lines[1]
	require.Equal(t, cake.UnitPriceBefore, cake.UnitPriceAfter)
	require.Empty(t, cake.Adjustments)

	require.Equal(t, 20, result.DiscountPercent)
}

func TestQuoteEmptyScopeAppliesToNothing(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	p := &promo.Promotion{
		Code:       "BROKEN",
		Kind:       promo.KindDiscount,
		PercentOff: 50,
		IsActive:   true,
	}
	engine := newEngine(resolver, cats, p)

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 3, Size: SizeLa}})
	require.NoError(t, err)
	require.Empty(t, result.Lines[0].Adjustments)
	require.Equal(t, result.Lines[0].UnitPriceBefore, result.Lines[0].UnitPriceAfter)
	require.Zero(t, result.DiscountTotal)
}

func TestQuoteLegacyOnlyProduct(t *testing.T) {
	productID := uuid.New()
	resolver := NewPriceResolver(nil, []LegacyPriceRow{
		{ProductID: productID, PriceKey: "Price", UnitPrice: 25000},
	})
	cats := map[uuid.UUID]catalog.Category{productID: catalog.CategoryCake}
	engine := newEngine(resolver, cats, nil)

	result, err := engine.Quote([]Line{
		{LineID: "std", ProductID: productID, Quantity: 1, Size: SizeStandard},
		{LineID: "phe", ProductID: productID, Quantity: 1, Size: SizePhe},
	})
	require.NoError(t, err)
	require.False(t, result.Lines[0].MissingPrice)
	require.Equal(t, int64(25000), result.Lines[0].UnitPriceAfter)
	require.True(t, result.Lines[1].MissingPrice)
}

func TestQuoteStructuredShadowsLegacySize(t *testing.T) {
	// Structured PHE row exists, legacy LA row exists: LA must be a
	// missing price, not a legacy fallback.
	productID := uuid.New()
	resolver := NewPriceResolver(
		[]PriceRow{{ProductID: productID, SizeKey: SizePhe, UnitPrice: 54000}},
		[]LegacyPriceRow{{ProductID: productID, PriceKey: "PriceLa", UnitPrice: 69000}},
	)
	cats := map[uuid.UUID]catalog.Category{productID: catalog.CategoryDrink}
	engine := newEngine(resolver, cats, nil)

	result, err := engine.Quote([]Line{{LineID: "la", ProductID: productID, Quantity: 1, Size: SizeLa}})
	require.NoError(t, err)
	require.True(t, result.Lines[0].MissingPrice)
	require.True(t, result.HasMissingPrice())
	require.Equal(t, []string{"la"}, result.MissingLineIDs())
	require.Zero(t, result.SubtotalBefore)
}

func TestQuoteMissingLineDoesNotAbortOthers(t *testing.T) {
	pricedID, resolver, cats := drinkProduct()
	ghostID := uuid.New()
	cats[ghostID] = catalog.CategoryDrink
	engine := newEngine(resolver, cats, nil)

	result, err := engine.Quote([]Line{
		{LineID: "ok", ProductID: pricedID, Quantity: 2, Size: SizeLa},
		{LineID: "ghost", ProductID: ghostID, Quantity: 1, Size: SizePhe},
	})
	require.NoError(t, err)
	require.False(t, result.Lines[0].MissingPrice)
	require.True(t, result.Lines[1].MissingPrice)
	require.Equal(t, int64(138000), result.SubtotalBefore)
	require.Equal(t, int64(138000), result.GrandTotal)
}

func TestQuoteMissingLinesExcludedFromThreshold(t *testing.T) {
	pricedID, resolver, cats := drinkProduct()
	ghostID := uuid.New()
	cats[ghostID] = catalog.CategoryDrink
	engine := newEngine(resolver, cats, freeUpsizePromo(5))

	// 3 priced + 4 unpriceable drinks: threshold of 5 must not be met.
	result, err := engine.Quote([]Line{
		{LineID: "ok", ProductID: pricedID, Quantity: 3, Size: SizePhe},
		{LineID: "ghost", ProductID: ghostID, Quantity: 4, Size: SizePhe},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.EligibleQty)
	require.False(t, result.UpsizeApplied)
}

func TestQuoteScopedRuleCountsOnlyEligibleLines(t *testing.T) {
	drinkID, _, _ := drinkProduct()
	pctcID := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: drinkID, SizeKey: SizePhe, UnitPrice: 54000},
		{ProductID: drinkID, SizeKey: SizeLa, UnitPrice: 69000},
		{ProductID: pctcID, SizeKey: SizePhe, UnitPrice: 40000},
		{ProductID: pctcID, SizeKey: SizeLa, UnitPrice: 50000},
	}, nil)
	cats := map[uuid.UUID]catalog.Category{
		drinkID: catalog.CategoryDrink,
		pctcID:  catalog.CategoryDrink,
	}
	lines := []Line{
		{LineID: "a", ProductID: drinkID, Quantity: 3, Size: SizePhe},
		{LineID: "b", ProductID: pctcID, Quantity: 3, Size: SizePhe},
	}

	// Scoped to one product: only that line counts, threshold unmet.
	scoped := freeUpsizePromo(5)
	scoped.Scope = promo.NewScope(nil, nil, []uuid.UUID{drinkID})
	result, err := newEngine(resolver, cats, scoped).Quote(lines)
	require.NoError(t, err)
	require.Equal(t, 3, result.EligibleQty)
	require.False(t, result.UpsizeApplied)

	// Unscoped: every drink line counts, threshold met. The asymmetry is
	// preserved legacy behaviour.
	result, err = newEngine(resolver, cats, freeUpsizePromo(5)).Quote(lines)
	require.NoError(t, err)
	require.Equal(t, 6, result.EligibleQty)
	require.True(t, result.UpsizeApplied)
}

func TestQuoteUnknownCategoryNeverEligible(t *testing.T) {
	productID := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: productID, SizeKey: SizeStandard, UnitPrice: 10000},
	}, nil)
	p := &promo.Promotion{
		Code:       "ALL",
		Kind:       promo.KindDiscount,
		PercentOff: 50,
		IsActive:   true,
		Scope: promo.NewScope(nil, nil, []uuid.UUID{productID}),
	}
	// Product category is unresolved, so it normalizes to UNKNOWN even
	// though the product id is explicitly included.
	engine := newEngine(resolver, map[uuid.UUID]catalog.Category{}, p)

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 1, Size: SizeStandard}})
	require.NoError(t, err)
	require.Empty(t, result.Lines[0].Adjustments)
	require.Equal(t, int64(10000), result.Lines[0].UnitPriceAfter)
}

func TestQuoteExpiredPromotionIgnored(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	expired := testNow.Add(-time.Hour)
	p := freeUpsizePromo(1)
	p.ValidUntil = &expired
	engine := newEngine(resolver, cats, p)
	engine.Verbose = true

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 5, Size: SizePhe}})
	require.NoError(t, err)
	require.False(t, result.UpsizeApplied)
	require.NotNil(t, result.Debug)
	require.False(t, result.Debug.PromoActive)
	require.Equal(t, promo.ErrExpired.Error(), result.Debug.PromoSkipReason)
}

func TestQuoteUpsizeComposesWithDiscount(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	p := freeUpsizePromo(5)
	p.PercentOff = 20
	p.Scope = promo.NewScope([]catalog.Category{catalog.CategoryDrink}, nil, nil)
	engine := newEngine(resolver, cats, p)

	result, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 5, Size: SizePhe}})
	require.NoError(t, err)

	line := result.Lines[0]
	require.Equal(t, SizeLa, line.DisplaySize)
	require.Equal(t, SizePhe, line.ChargedSize)
	require.Len(t, line.Adjustments, 2)
	require.Equal(t, AdjustmentFreeUpsize, line.Adjustments[0].Kind)
	require.Equal(t, int64(75000), line.Adjustments[0].Amount)
	require.Equal(t, AdjustmentPercentDiscount, line.Adjustments[1].Kind)
	// 20% off the charged (PHE) unit price, rounded at the unit level.
	require.Equal(t, int64(10800*5), line.Adjustments[1].Amount)
	require.Equal(t, int64(43200), line.UnitPriceAfter)
	require.Equal(t, result.SubtotalBefore-result.DiscountTotal, result.GrandTotal)
}

func TestQuoteTotalsIdentity(t *testing.T) {
	drinkID, _, _ := drinkProduct()
	cakeID := uuid.New()
	resolver := NewPriceResolver([]PriceRow{
		{ProductID: drinkID, SizeKey: SizePhe, UnitPrice: 54000},
		{ProductID: drinkID, SizeKey: SizeLa, UnitPrice: 69000},
		{ProductID: cakeID, SizeKey: SizeStandard, UnitPrice: 33000},
	}, nil)
	cats := map[uuid.UUID]catalog.Category{
		drinkID: catalog.CategoryDrink,
		cakeID:  catalog.CategoryCake,
	}
	p := &promo.Promotion{
		Code:       "MIX",
		Kind:       promo.KindDiscount,
		PercentOff: 15,
		IsActive:   true,
		Scope: promo.NewScope([]catalog.Category{catalog.CategoryDrink, catalog.CategoryCake}, nil, nil),
	}
	engine := newEngine(resolver, cats, p)

	result, err := engine.Quote([]Line{
		{LineID: "a", ProductID: drinkID, Quantity: 3, Size: SizeLa},
		{LineID: "b", ProductID: cakeID, Quantity: 2, Size: SizeStandard},
		{LineID: "c", ProductID: drinkID, Quantity: 1, Size: SizePhe},
	})
	require.NoError(t, err)

	var subtotal, discounts money.Money
	for _, line := range result.Lines {
		require.False(t, line.MissingPrice)
		subtotal += line.LineTotalBefore
		for _, adj := range line.Adjustments {
			discounts += adj.Amount
		}
		require.Equal(t, line.LineTotalBefore-sumAdjustments(line), line.LineTotalAfter)
	}
	require.Equal(t, subtotal, result.SubtotalBefore)
	require.Equal(t, discounts, result.DiscountTotal)
	require.Equal(t, result.SubtotalBefore-result.DiscountTotal, result.GrandTotal)
}

func TestQuoteLineIsolation(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	engine := newEngine(resolver, cats, nil)

	both, err := engine.Quote([]Line{
		{LineID: "first", ProductID: productID, Quantity: 1, Size: SizePhe},
		{LineID: "second", ProductID: productID, Quantity: 2, Size: SizeLa},
	})
	require.NoError(t, err)
	require.Len(t, both.Lines, 2)
	require.Equal(t, "first", both.Lines[0].LineID)
	require.Equal(t, "second", both.Lines[1].LineID)
	require.Equal(t, int64(54000), both.Lines[0].UnitPriceAfter)
	require.Equal(t, int64(69000), both.Lines[1].UnitPriceAfter)

	single, err := engine.Quote([]Line{
		{LineID: "second", ProductID: productID, Quantity: 2, Size: SizeLa},
	})
	require.NoError(t, err)
	require.Equal(t, both.Lines[1].LineTotalAfter, single.Lines[0].LineTotalAfter)
	require.Equal(t, both.Lines[1].UnitPriceAfter, single.Lines[0].UnitPriceAfter)
}

func TestQuoteEmptyLinesRejected(t *testing.T) {
	_, resolver, cats := drinkProduct()
	engine := newEngine(resolver, cats, nil)
	_, err := engine.Quote(nil)
	require.ErrorIs(t, err, ErrNoLines)
}

func TestQuoteDebugOnlyWhenVerbose(t *testing.T) {
	productID, resolver, cats := drinkProduct()
	engine := newEngine(resolver, cats, nil)

	quiet, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 1, Size: SizePhe}})
	require.NoError(t, err)
	require.Nil(t, quiet.Debug)

	engine.Verbose = true
	verbose, err := engine.Quote([]Line{{LineID: "l1", ProductID: productID, Quantity: 1, Size: SizePhe}})
	require.NoError(t, err)
	require.NotNil(t, verbose.Debug)
}

func sumAdjustments(line ResultLine) money.Money {
	var total money.Money
	for _, adj := range line.Adjustments {
		total += adj.Amount
	}
	return total
}

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quangngluu/backend-pos/internal/catalog"
	"github.com/quangngluu/backend-pos/internal/notify"
	"github.com/quangngluu/backend-pos/internal/obs"
	"github.com/quangngluu/backend-pos/internal/promo"
	"github.com/quangngluu/backend-pos/internal/quote"
	"github.com/quangngluu/backend-pos/internal/repo"
)

// PromoResolver resolves a promotion code into its evaluated form.
type PromoResolver interface {
	Resolve(ctx context.Context, code string) (*promo.Promotion, error)
}

// CatalogSource fetches the catalog snapshot a quote consumes.
type CatalogSource interface {
	Snapshot(ctx context.Context, ids []uuid.UUID) (*catalog.Snapshot, error)
}

// OrderStore persists confirmed orders.
type OrderStore interface {
	Create(ctx context.Context, order repo.OrderRecord, lines []repo.OrderLineRecord) error
}

// ReceiptEnqueuer publishes post-checkout receipt tasks.
type ReceiptEnqueuer interface {
	EnqueueOrderReceipt(ctx context.Context, payload notify.ReceiptPayload) error
}

// LineRequest is one draft order line as submitted by the client.
type LineRequest struct {
	LineID    string `json:"line_id" validate:"required,max=64"`
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
	SizeKey   string `json:"size_key" validate:"required,max=32"`
}

// QuoteRequest is the payload shared by the quote and order endpoints.
// Clients submit draft lines only; every price is recomputed server-side.
type QuoteRequest struct {
	PromoCode string        `json:"promo_code" validate:"omitempty,max=64"`
	Verbose   bool          `json:"verbose"`
	Lines     []LineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
}

// LineError attributes a request problem to one submitted line.
type LineError struct {
	LineID  string `json:"line_id"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError collects line-attributable request problems.
type RequestError struct {
	Lines []LineError
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request lines: %d problem(s)", len(e.Lines))
}

// MissingPriceError rejects order commitment when lines cannot be priced.
type MissingPriceError struct {
	LineIDs []string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("order has %d line(s) without a resolvable price", len(e.LineIDs))
}

// Confirmation is the response to a committed order.
type Confirmation struct {
	OrderID string       `json:"order_id"`
	Quote   quote.Result `json:"quote"`
}

// Service orchestrates quote computation and order persistence.
type Service struct {
	Promos   PromoResolver
	Catalog  CatalogSource
	Orders   OrderStore
	Receipts ReceiptEnqueuer
	Currency string
	// VerboseDefault attaches debug output to every quote, regardless of
	// the per-request flag.
	VerboseDefault bool
	Now            func() time.Time
	Log            zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ComputeQuote prices a draft order without committing it.
func (s *Service) ComputeQuote(ctx context.Context, req QuoteRequest) (quote.Result, error) {
	result, _, err := s.computeQuote(ctx, req)
	return result, err
}

func (s *Service) computeQuote(ctx context.Context, req QuoteRequest) (quote.Result, *catalog.Snapshot, error) {
	started := time.Now()

	lines, err := parseLines(req.Lines)
	if err != nil {
		observeQuote("invalid")
		return quote.Result{}, nil, err
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, ln := range lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
	}

	// The promotion lookup and the catalog snapshot are independent reads.
	var (
		active *promo.Promotion
		snap   *catalog.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	if req.PromoCode != "" {
		g.Go(func() error {
			p, err := s.Promos.Resolve(gctx, req.PromoCode)
			if err != nil {
				observePromoLookup(err)
				return err
			}
			observePromoLookup(nil)
			active = p
			return nil
		})
	}
	g.Go(func() error {
		var err error
		snap, err = s.Catalog.Snapshot(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, promo.ErrNotFound) {
			observeQuote("error")
		}
		return quote.Result{}, nil, err
	}

	engine := &quote.Engine{
		Resolver:   resolverFromSnapshot(snap),
		Categories: snap.Categories,
		Promo:      active,
		Now:        s.now,
		Verbose:    req.Verbose || s.VerboseDefault,
	}
	result, err := engine.Quote(lines)
	if err != nil {
		observeQuote("error")
		return quote.Result{}, nil, err
	}

	observeQuoteResult(result, started)
	return result, snap, nil
}

// CreateOrder recomputes the quote and persists it. Orders with any
// unpriceable line are rejected before anything is written.
func (s *Service) CreateOrder(ctx context.Context, req QuoteRequest) (Confirmation, error) {
	result, snap, err := s.computeQuote(ctx, req)
	if err != nil {
		observeOrder("rejected")
		return Confirmation{}, err
	}
	if result.HasMissingPrice() {
		observeOrder("rejected_missing_price")
		return Confirmation{}, &MissingPriceError{LineIDs: result.MissingLineIDs()}
	}

	orderID := uuid.New()
	record := repo.OrderRecord{
		ID:             orderID,
		SubtotalBefore: result.SubtotalBefore,
		DiscountTotal:  result.DiscountTotal,
		GrandTotal:     result.GrandTotal,
		Currency:       s.Currency,
		CreatedAt:      s.now(),
	}
	if req.PromoCode != "" {
		record.PromoCode = &req.PromoCode
	}

	lineRecords := make([]repo.OrderLineRecord, 0, len(result.Lines))
	for _, line := range result.Lines {
		lineRecords = append(lineRecords, repo.OrderLineRecord{
			LineID:          line.LineID,
			ProductID:       line.ProductID,
			Quantity:        int32(line.Quantity),
			DisplaySize:     line.DisplaySize.String(),
			ChargedSize:     line.ChargedSize.String(),
			UnitPriceBefore: line.UnitPriceBefore,
			UnitPriceAfter:  line.UnitPriceAfter,
			LineTotalBefore: line.LineTotalBefore,
			LineTotalAfter:  line.LineTotalAfter,
			Adjustments:     line.Adjustments,
		})
	}

	if err := s.Orders.Create(ctx, record, lineRecords); err != nil {
		observeOrder("error")
		return Confirmation{}, fmt.Errorf("persist order: %w", err)
	}
	observeOrder("created")

	s.enqueueReceipt(ctx, record, result, snap)
	return Confirmation{OrderID: orderID.String(), Quote: result}, nil
}

// enqueueReceipt is best-effort: the order is already committed, so a
// queue outage must not fail the request.
func (s *Service) enqueueReceipt(ctx context.Context, record repo.OrderRecord, result quote.Result, snap *catalog.Snapshot) {
	if s.Receipts == nil {
		return
	}
	payload := notify.ReceiptPayload{
		OrderID:        record.ID.String(),
		SubtotalBefore: record.SubtotalBefore,
		DiscountTotal:  record.DiscountTotal,
		GrandTotal:     record.GrandTotal,
		Currency:       record.Currency,
		CreatedAt:      record.CreatedAt,
	}
	if record.PromoCode != nil {
		payload.PromoCode = *record.PromoCode
	}
	for _, line := range result.Lines {
		payload.Lines = append(payload.Lines, notify.ReceiptLine{
			ProductName: snap.Names[line.ProductID],
			Quantity:    line.Quantity,
			DisplaySize: line.DisplaySize.String(),
			ChargedSize: line.ChargedSize.String(),
			LineTotal:   line.LineTotalAfter,
		})
	}
	if err := s.Receipts.EnqueueOrderReceipt(ctx, payload); err != nil {
		s.Log.Warn().Err(err).Str("order_id", payload.OrderID).Msg("receipt enqueue failed")
	}
}

// parseLines turns raw request lines into engine lines, collecting every
// problem instead of stopping at the first one.
func parseLines(raw []LineRequest) ([]quote.Line, error) {
	lines := make([]quote.Line, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var problems []LineError
	for _, lr := range raw {
		if seen[lr.LineID] {
			problems = append(problems, LineError{LineID: lr.LineID, Field: "line_id", Message: "duplicate line id"})
			continue
		}
		seen[lr.LineID] = true

		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			problems = append(problems, LineError{LineID: lr.LineID, Field: "product_id", Message: "not a valid uuid"})
			continue
		}
		size, ok := quote.ParseSizeKey(lr.SizeKey)
		if !ok {
			problems = append(problems, LineError{LineID: lr.LineID, Field: "size_key", Message: "unrecognised size key"})
			continue
		}
		lines = append(lines, quote.Line{
			LineID:    lr.LineID,
			ProductID: productID,
			Quantity:  lr.Quantity,
			Size:      size,
		})
	}
	if len(problems) > 0 {
		return nil, &RequestError{Lines: problems}
	}
	return lines, nil
}

// resolverFromSnapshot maps repository price rows into resolver inputs.
// Structured rows with an unparseable size key are dropped the same way
// legacy rows are, rather than misfiled.
func resolverFromSnapshot(snap *catalog.Snapshot) *quote.PriceResolver {
	variant := make([]quote.PriceRow, 0, len(snap.VariantPrices))
	for _, row := range snap.VariantPrices {
		size, ok := quote.ParseSizeKey(row.SizeKey)
		if !ok {
			continue
		}
		variant = append(variant, quote.PriceRow{
			ProductID: row.ProductID,
			SizeKey:   size,
			UnitPrice: row.UnitPrice,
		})
	}
	legacy := make([]quote.LegacyPriceRow, 0, len(snap.LegacyPrices))
	for _, row := range snap.LegacyPrices {
		legacy = append(legacy, quote.LegacyPriceRow{
			ProductID: row.ProductID,
			PriceKey:  row.PriceKey,
			UnitPrice: row.UnitPrice,
		})
	}
	return quote.NewPriceResolver(variant, legacy)
}

func observeQuote(result string) {
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(result).Inc()
	}
}

func observeQuoteResult(result quote.Result, started time.Time) {
	outcome := "ok"
	for _, line := range result.Lines {
		if line.MissingPrice {
			outcome = "missing_price"
			if obs.QuoteMissingPriceLines != nil {
				obs.QuoteMissingPriceLines.Inc()
			}
			continue
		}
		for _, adj := range line.Adjustments {
			if obs.QuoteAdjustmentsTotal != nil {
				obs.QuoteAdjustmentsTotal.WithLabelValues(string(adj.Kind)).Inc()
			}
		}
	}
	observeQuote(outcome)
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(float64(time.Since(started).Milliseconds()))
	}
}

func observeOrder(result string) {
	if obs.OrderTotal != nil {
		obs.OrderTotal.WithLabelValues(result).Inc()
	}
}

func observePromoLookup(err error) {
	if obs.PromoLookupTotal == nil {
		return
	}
	switch {
	case err == nil:
		obs.PromoLookupTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, promo.ErrNotFound):
		obs.PromoLookupTotal.WithLabelValues("not_found").Inc()
	default:
		obs.PromoLookupTotal.WithLabelValues("error").Inc()
	}
}

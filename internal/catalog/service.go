package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quangngluu/backend-pos/internal/repo"
)

// Querier captures the repository methods required by the catalog service.
type Querier interface {
	ListProducts(ctx context.Context, limit, offset int32) ([]repo.ProductRow, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]repo.ProductRow, error)
	ListVariantPrices(ctx context.Context, ids []uuid.UUID) ([]repo.VariantPriceRow, error)
	ListLegacyPrices(ctx context.Context, ids []uuid.UUID) ([]repo.LegacyPriceRow, error)
}

// Service assembles catalog read models and pricing snapshots.
type Service struct {
	queries      Querier
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      Querier
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// Product is the public product payload.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// ListParams captures pagination for product listing.
type ListParams struct {
	Page  int
	Limit int
}

// ParseListParams normalises raw query values into typed pagination.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, fmt.Errorf("page must be a positive integer")
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, fmt.Errorf("limit must be a positive integer")
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

// ListProducts returns a page of products with resolved categories,
// served from cache when possible.
func (s *Service) ListProducts(ctx context.Context, params ListParams) ([]Product, error) {
	cacheKey := fmt.Sprintf("products:p%d:l%d", params.Page, params.Limit)
	var cached []Product
	if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	offset := int32((params.Page - 1) * params.Limit)
	rows, err := s.queries.ListProducts(ctx, int32(params.Limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	result := make([]Product, 0, len(rows))
	for _, row := range rows {
		result = append(result, Product{
			ID:       row.ID.String(),
			Name:     row.Name,
			Category: ResolveCategory(row),
		})
	}
	_ = s.cache.SetJSON(ctx, cacheKey, result)
	return result, nil
}

// Categories returns the canonical category set exposed to clients.
func (s *Service) Categories() []Category {
	return []Category{
		CategoryDrink,
		CategoryCake,
		CategoryTopping,
		CategoryMerchandise,
		CategoryPctc,
	}
}

// Snapshot is the read-only catalog state a quote computation consumes.
type Snapshot struct {
	Names         map[uuid.UUID]string
	Categories    map[uuid.UUID]Category
	VariantPrices []repo.VariantPriceRow
	LegacyPrices  []repo.LegacyPriceRow
}

// Snapshot fetches products and both pricing tiers for the given ids as
// three parallel independent reads. The rows are mutually independent, so
// any failure cancels the remaining fetches and fails the whole snapshot.
func (s *Service) Snapshot(ctx context.Context, ids []uuid.UUID) (*Snapshot, error) {
	snap := &Snapshot{
		Names:      make(map[uuid.UUID]string, len(ids)),
		Categories: make(map[uuid.UUID]Category, len(ids)),
	}

	g, gctx := errgroup.WithContext(ctx)
	var products []repo.ProductRow
	g.Go(func() error {
		var err error
		products, err = s.queries.ListProductsByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		snap.VariantPrices, err = s.queries.ListVariantPrices(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		snap.LegacyPrices, err = s.queries.ListLegacyPrices(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	for _, row := range products {
		snap.Names[row.ID] = row.Name
		snap.Categories[row.ID] = ResolveCategory(row)
	}
	return snap, nil
}

// ResolveCategory picks the structured category code when present and
// falls back to the legacy free-text label. Both paths normalise onto the
// closed set; an unresolvable category is UNKNOWN, never a guess.
func ResolveCategory(row repo.ProductRow) Category {
	if row.CategoryCode != nil {
		if c := NormalizeCategory(*row.CategoryCode); c.Known() {
			return c
		}
	}
	if row.LegacyCategory != nil {
		return NormalizeCategory(*row.LegacyCategory)
	}
	return CategoryUnknown
}

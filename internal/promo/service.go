package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quangngluu/backend-pos/internal/catalog"
	"github.com/quangngluu/backend-pos/internal/repo"
)

// Querier captures the repository methods required by the promotion
// service, so tests can supply fakes.
type Querier interface {
	GetByCode(ctx context.Context, code string) (repo.PromotionRow, error)
	ListScopes(ctx context.Context, promotionID uuid.UUID) ([]repo.ScopeRow, error)
}

// Service resolves promotion codes into evaluated Promotion values.
type Service struct {
	Q   Querier
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Resolve fetches a promotion and its scope rows by code. A missing code
// yields ErrNotFound; window validity is not checked here because the
// quote engine owns that decision.
func (s *Service) Resolve(ctx context.Context, code string) (*Promotion, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("promo service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrNotFound
	}
	row, err := s.Q.GetByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	scopes, err := s.Q.ListScopes(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return fromRows(row, scopes), nil
}

// Status describes a promotion preview for the storefront.
type Status struct {
	Code       string `json:"code"`
	Kind       Kind   `json:"kind"`
	PercentOff int    `json:"percent_off,omitempty"`
	MinQty     int    `json:"min_qty,omitempty"`
	Active     bool   `json:"active"`
	Reason     string `json:"reason,omitempty"`
}

// Preview reports whether the promotion would be honoured right now.
func (s *Service) Preview(ctx context.Context, code string) (Status, error) {
	p, err := s.Resolve(ctx, code)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		Code:       p.Code,
		Kind:       p.Kind,
		PercentOff: p.PercentOff,
		MinQty:     p.MinQty,
		Active:     true,
	}
	if err := p.ValidateWindow(s.now()); err != nil {
		status.Active = false
		status.Reason = err.Error()
	}
	return status, nil
}

func fromRows(row repo.PromotionRow, scopes []repo.ScopeRow) *Promotion {
	p := &Promotion{
		ID:         row.ID,
		Code:       row.Code,
		Kind:       parseKind(row.Kind),
		PercentOff: int(row.PercentOff),
		MinQty:     int(row.MinQty),
		ValidFrom:  row.ValidFrom,
		ValidUntil: row.ValidUntil,
		IsActive:   row.IsActive,
	}

	var (
		included   []catalog.Category
		excluded   []catalog.Category
		productIDs []uuid.UUID
	)
	for _, scope := range scopes {
		switch scope.ScopeType {
		case repo.ScopeIncludeCategory:
			if scope.CategoryCode != nil {
				included = append(included, catalog.NormalizeCategory(*scope.CategoryCode))
			}
		case repo.ScopeExcludeCategory:
			if scope.CategoryCode != nil {
				excluded = append(excluded, catalog.NormalizeCategory(*scope.CategoryCode))
			}
		case repo.ScopeIncludeProduct:
			if scope.ProductID != nil {
				productIDs = append(productIDs, *scope.ProductID)
			}
		}
	}
	p.Scope = NewScope(included, excluded, productIDs)
	return p
}

func parseKind(raw string) Kind {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(KindDiscount):
		return KindDiscount
	case string(KindRule):
		return KindRule
	}
	return Kind(strings.ToUpper(strings.TrimSpace(raw)))
}

package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quangngluu/backend-pos/internal/common"
	"github.com/quangngluu/backend-pos/internal/promo"
	"github.com/quangngluu/backend-pos/internal/quote"
)

// Handler exposes the quote and order endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

// Quote handles POST /api/v1/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.Service.ComputeQuote(r.Context(), req)
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	confirmation, err := h.Service.CreateOrder(r.Context(), req)
	if err != nil {
		var missing *MissingPriceError
		if errors.As(err, &missing) {
			common.RenderError(w, &common.AppError{
				Code:       "MISSING_PRICE",
				Message:    "order cannot be committed with unpriceable lines",
				HTTPStatus: http.StatusUnprocessableEntity,
				Err:        err,
				Details:    map[string]any{"line_ids": missing.LineIDs},
			})
			return
		}
		writeQuoteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, confirmation)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (QuoteRequest, bool) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return req, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return req, false
		}
	}
	return req, true
}

// writeQuoteError maps service failures onto AppError before rendering,
// so every endpoint shares the canonical envelope.
func writeQuoteError(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		appErr := common.NewAppError("INVALID_LINES", "one or more lines are invalid", http.StatusBadRequest, err)
		appErr.Details = map[string]any{"lines": reqErr.Lines}
		common.RenderError(w, appErr)
	case errors.Is(err, promo.ErrNotFound):
		common.RenderError(w, common.NewAppError("PROMO_NOT_FOUND", "promotion code not found", http.StatusNotFound, err))
	case errors.Is(err, quote.ErrNoLines):
		common.RenderError(w, common.NewAppError("EMPTY_ORDER", "at least one line is required", http.StatusBadRequest, err))
	default:
		common.RenderError(w, common.NewAppError("INTERNAL", "failed to compute quote", http.StatusInternalServerError, err))
	}
}

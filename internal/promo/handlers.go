package promo

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quangngluu/backend-pos/internal/common"
)

// Handler exposes the promotion preview endpoint.
type Handler struct {
	Svc *Service
}

// Preview handles GET /api/v1/promotions/{code}/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := h.Svc.Preview(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PROMO_NOT_FOUND", "promotion code not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load promotion", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": status})
}

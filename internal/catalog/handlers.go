package catalog

import (
	"net/http"

	"github.com/quangngluu/backend-pos/internal/common"
)

// Handler exposes catalog read endpoints.
type Handler struct {
	Service *Service
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	params, err := h.Service.ParseListParams(r.URL.Query())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error(), nil)
		return
	}
	products, err := h.Service.ListProducts(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": products,
		"pagination": map[string]int{
			"page":     params.Page,
			"per_page": params.Limit,
		},
	})
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Service.Categories()})
}

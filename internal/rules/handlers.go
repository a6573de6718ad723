package rules

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/lock"
	"github.com/noah-isme/backend-offers/internal/pricing"
)

// Handler exposes rule management and cart pricing endpoints.
type Handler struct {
	Service *Service
	Applier *Applier
}

// List handles GET /api/v1/rules.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Get handles GET /api/v1/rules/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Create handles POST /api/v1/rules.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	out, err := h.Service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

// Update handles PUT /api/v1/rules/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	out, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/rules/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyQuery handles POST /api/v1/rules/apply?cart_id=.
func (h *Handler) ApplyQuery(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimSpace(r.URL.Query().Get("cart_id"))
	if cartID == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cart_id is required", nil)
		return
	}
	h.apply(w, r, cartID)
}

// ApplyCart handles POST /api/v1/carts/{id}/apply.
func (h *Handler) ApplyCart(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, cartID string) {
	if h.Applier == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing not configured", nil)
		return
	}
	result, err := h.Applier.Apply(r.Context(), cartID)
	if err != nil {
		writeApplyError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"cart_id":     cartID,
		"total_price": result.Total,
		"result":      result,
	})
}

func writeApplyError(w http.ResponseWriter, err error) {
	var (
		invalid *pricing.InvalidRuleError
		unknown *pricing.UnknownEffectError
	)
	switch {
	case errors.Is(err, pricing.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", err.Error(), nil)
	case errors.As(err, &invalid):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_RULE", err.Error(), map[string]string{"rule_id": invalid.RuleID, "operator": string(invalid.Operator)})
	case errors.As(err, &unknown):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_EFFECT", err.Error(), map[string]string{"rule_id": unknown.RuleID, "effect": string(unknown.Effect)})
	case errors.Is(err, lock.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, "CART_BUSY", "cart is being repriced, retry shortly", nil)
	default:
		common.WriteError(w, err)
	}
}

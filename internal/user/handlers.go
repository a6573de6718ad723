package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-offers/internal/common"
)

// Handler exposes REST endpoints for users.
type Handler struct {
	Service *Service
}

type userRequest struct {
	Name     string `json:"name"`
	Fullname string `json:"fullname"`
	Nickname string `json:"nickname"`
}

// List handles GET /api/v1/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := common.ParsePagination(r, 20)
	users, total, err := h.Service.List(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Page(w, users, common.NewPagination(req, total))
}

// Get handles GET /api/v1/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, u)
}

// Create handles POST /api/v1/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	u, err := h.Service.Create(r.Context(), Input(req))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, u)
}

package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/service"
)

type ItemHandler struct {
	itemService *service.ItemService
}

func NewItemHandler(itemService *service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

func (h *ItemHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Deposit)
	r.Get("/", h.List)
	r.Get("/{code}", h.Get)
	r.Delete("/{code}", h.Delete)
	r.Get("/{code}/label", h.Label)

	return r
}

// POST /v1/items
//
// Registers a new item and returns it with a freshly rendered label,
// base64-encoded so a single response carries both.
func (h *ItemHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}

	result, err := h.itemService.Deposit(r.Context(), account.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"item":     result.Item,
		"labelPng": base64.StdEncoding.EncodeToString(result.LabelPNG),
	})
}

// GET /v1/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	items, err := h.itemService.List(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// GET /v1/items/{code}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")

	item, err := h.itemService.Get(r.Context(), account.ID, code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// DELETE /v1/items/{code}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")

	if err := h.itemService.Delete(r.Context(), account.ID, code); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GET /v1/items/{code}/label
func (h *ItemHandler) Label(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")

	png, err := h.itemService.Label(r.Context(), account.ID, code)
	if err != nil {
		writeError(w, err)
		return
	}

	writePNG(w, png)
}

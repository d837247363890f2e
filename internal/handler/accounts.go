package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Register)
	r.Post("/login", h.Login)

	return r
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// POST /v1/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}

	result, err := h.accountService.Register(r.Context(), req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account": result.Account,
		"token":   result.Token,
	})
}

// POST /v1/accounts/login
//
// A successful login rotates the account token; any previously issued
// token stops working.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}

	result, err := h.accountService.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": result.Account,
		"token":   result.Token,
	})
}

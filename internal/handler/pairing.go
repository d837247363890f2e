package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/label"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/service"
)

type PairingHandler struct {
	pairingService *service.PairingService
	codec          *label.Codec
}

func NewPairingHandler(pairingService *service.PairingService, codec *label.Codec) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		codec:          codec,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/scan", h.Scan)
	r.Post("/scan-label", h.ScanLabel)
	r.Post("/cancel", h.Cancel)
	r.Get("/status", h.Status)

	return r
}

// POST /v1/pairing/scan
//
// Feeds one already-decoded scan into the pairing session. Clients that
// decode QR labels on-device use this; clients without a decoder upload
// the raw image to /scan-label instead.
func (h *PairingHandler) Scan(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req struct {
		Code     string             `json:"code"`
		Category model.ScanCategory `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}
	if req.Code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	result, err := h.pairingService.Scan(r.Context(), account.ID, req.Code, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/pairing/scan-label
//
// Accepts a raw label photo, decodes the QR payload server-side and
// feeds it into the pairing session.
func (h *PairingHandler) ScanLabel(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	imageBytes, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperrors.MalformedPayload("failed to read request body"))
		return
	}
	if len(imageBytes) == 0 {
		writeError(w, apperrors.MissingRequired("image"))
		return
	}

	payload, err := h.codec.Decode(imageBytes)
	if err != nil {
		log.Warn().Err(err).Str("accountId", account.ID).Msg("label decode failed")
		writeError(w, err)
		return
	}

	result, err := h.pairingService.Scan(r.Context(), account.ID, payload.Code, payload.Category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/pairing/cancel
func (h *PairingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	if err := h.pairingService.Cancel(r.Context(), account.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// GET /v1/pairing/status
func (h *PairingHandler) Status(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	session, err := h.pairingService.Status(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

package handler

import (
	"net/http"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/httputil"
	"github.com/homestash/homestash-server/internal/middleware"
	"github.com/homestash/homestash-server/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// requireAccount fetches the authenticated account from the context.
// Routes are mounted behind the auth middleware, so a missing account
// means a wiring mistake rather than a client error.
func requireAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Missing account context"))
		return nil, false
	}
	return account, true
}

package server

import (
	"encoding/json"
	"net/http"

	perr "gramfix/internal/platform/errors"
	"gramfix/internal/platform/logger"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as application/json with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status. Client errors carry the short message,
// server errors the full failure description.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := perr.HTTPStatus(err)
	msg := err.Error()
	if e, ok := perr.As(err); ok && status < http.StatusInternalServerError {
		msg = e.Message()
	}
	if status >= http.StatusInternalServerError {
		logger.C(r.Context()).Debug().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: msg})
}

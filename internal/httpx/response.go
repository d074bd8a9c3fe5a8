// Package httpx holds the JSON request and response helpers shared by the
// HTTP components.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/apperr"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write json", zap.Error(err))
	}
}

// ErrorBody is the error envelope.  Exactly one of the detail fields is set
// when the error kind carries one, so the UI can show the failed guard.
type ErrorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Command string `json:"command,omitempty"`
	State   string `json:"state,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// WriteError maps err onto a status and envelope.  Internal errors are
// logged and rendered without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: err.Error(), Kind: apperr.Kind(err)}

	var (
		ve *apperr.ValidationError
		te *apperr.InvalidTransitionError
		ae *apperr.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		body.Field = ve.Field
		body.Reason = ve.Reason
	case errors.As(err, &te):
		body.Command = te.Command
		body.State = te.State
		body.Reason = te.Reason
	case errors.As(err, &ae):
		body.Command = ae.Command
		body.Reason = ae.Reason
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body.Error = http.StatusText(status)
	}
	WriteJSON(w, status, body)
}

// WriteStatus writes a bare status with a JSON error body.
func WriteStatus(w http.ResponseWriter, status int) {
	WriteJSON(w, status, ErrorBody{Error: http.StatusText(status), Kind: "http"})
}

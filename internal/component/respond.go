package component

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/upstream"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write json", zap.Error(err))
	}
}

// WriteError maps err to a {"error": message} body.
//
//	*upstream.Error        → its status and extracted message
//	*form.ValidationError  → 422 with per-field messages
//	ErrNoSession/NoToken   → 401
//	anything else          → 502, logged
func WriteError(w http.ResponseWriter, err error) {
	var ve *form.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  ve.Error(),
			"fields": ve.Fields,
		})
		return
	case errors.Is(err, scope.ErrNoSession), errors.Is(err, upstream.ErrNoToken):
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	if ue, ok := upstream.AsError(err); ok {
		WriteJSON(w, ue.StatusCode, map[string]string{"error": ue.Message})
		return
	}
	zap.L().Warn("upstream failure", zap.Error(err))
	WriteJSON(w, http.StatusBadGateway, map[string]string{"error": http.StatusText(http.StatusBadGateway)})
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// DecodeJSON decodes a request body of at most 1 MiB into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

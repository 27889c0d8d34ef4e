// Package shared holds the JSON response helpers every handler uses so
// success and error envelopes stay uniform across routes.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"accesshub/pkg/apperrors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// the status line is already on the wire by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error to its HTTP status and a JSON error
// envelope. Unknown errors map to 500 without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	message := "internal server error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	WriteJSON(w, apperrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}

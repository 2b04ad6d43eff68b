package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken is returned when an authenticated call is attempted on a
// session that has not logged in.
var ErrNoToken = errors.New("upstream: no access token in session")

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports a 401.
func (e *Error) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsForbidden reports a 403.
func (e *Error) IsForbidden() bool { return e.StatusCode == http.StatusForbidden }

// IsNotFound reports a 404.
func (e *Error) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// AsError unwraps err to *Error.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// maxMessage bounds raw-text messages taken from error bodies.
const maxMessage = 300

// ExtractMessage pulls a human-readable message out of an error body.  It
// tries "message", "error" (string or {"message": ...}), and "detail", then
// falls back to the trimmed raw text, then to the status text.
func ExtractMessage(status int, body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}

	if txt := strings.TrimSpace(string(body)); txt != "" && !strings.HasPrefix(txt, "{") {
		if len(txt) > maxMessage {
			txt = txt[:maxMessage]
		}
		return txt
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return "request failed"
}

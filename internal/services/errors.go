package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/mediactl/internal/shared"
)

// maxErrorDetail caps, in bytes, how much of a response body an [APIError] message quotes.
const maxErrorDetail = 200

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	detail := strings.TrimSpace(string(e.Body))
	if len(detail) > maxErrorDetail {
		cut := maxErrorDetail
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut] + "..."
	}
	if detail == "" {
		return fmt.Sprintf("%v: %s %s returned status %d", shared.ErrAPIRequest, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%v: %s %s returned status %d: %s", shared.ErrAPIRequest, e.Method, e.URL, e.StatusCode, detail)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == 404
}

// FieldErrors decodes a validation body of the form {"field": ["message", ...]}.
//
// String values are accepted as single messages. Returns nil when the body is not
// an object of that shape.
func (e *APIError) FieldErrors() map[string][]string {
	if e.StatusCode != 400 && e.StatusCode != 422 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &raw); err != nil {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for field, value := range raw {
		var messages []string
		if err := json.Unmarshal(value, &messages); err == nil {
			out[field] = messages
			continue
		}
		var message string
		if err := json.Unmarshal(value, &message); err == nil {
			out[field] = []string{message}
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

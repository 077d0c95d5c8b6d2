package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// newAPIError picks the display message out of an error body. The backend
// uses "error", "message" or "detail" depending on the endpoint.
func newAPIError(status int, body []byte) *APIError {
	var fields struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	msg := ""
	if json.Unmarshal(body, &fields) == nil {
		for _, m := range []string{fields.Error, fields.Message, fields.Detail} {
			if strings.TrimSpace(m) != "" {
				msg = strings.TrimSpace(m)
				break
			}
		}
	} else {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

// Message turns err into a string fit for an error banner: the backend's own
// message when there is one, fallback otherwise.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

package tenantsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// StatusMessage is status.statusMessage from the envelope, if any.
	StatusMessage string

	// Message is the top-level "message" field some error pages carry.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("tenantsdk: HTTP %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("tenantsdk: HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ServerMessage returns the most specific message the server sent, or "".
func (e *APIError) ServerMessage() string {
	if e.StatusMessage != "" {
		return e.StatusMessage
	}
	return e.Message
}

// parseErrorResponse pulls whatever message it can out of an error body.
// Bodies that are not JSON still yield an APIError with the status code.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Status  *Status `json:"status"`
		Message string  `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Status != nil {
			apiErr.StatusMessage = envelope.Status.StatusMessage
		}
		apiErr.Message = envelope.Message
	}

	return apiErr
}

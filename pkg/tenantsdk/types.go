package tenantsdk

import (
	"encoding/json"
	"slices"
	"strings"
)

// ============================================================================
// Envelope
// ============================================================================

// Status is the application-level outcome carried by every response.
type Status struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// ============================================================================
// Login
// ============================================================================

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	UserEmail string `json:"userEmail"`
	Password  string `json:"password"`
}

// LoginResponse is the envelope returned by POST /user/login.
type LoginResponse struct {
	ID     *string         `json:"id"`
	Status Status          `json:"status"`
	Errors json.RawMessage `json:"errors"`
	Data   *UserRecord     `json:"data"`
}

// UserRecord is the user row the backend returns on login.
type UserRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	FullName  string `json:"fullName"`
	TenantID  string `json:"tenantId"`
	EmailID   string `json:"emailId"`
	Mobile    string `json:"mobile"`
	UserType  string `json:"userType"`
	Active    bool   `json:"active"`
	CreatedBy string `json:"createdBy,omitempty"`
	CreatedOn string `json:"createdOn,omitempty"`
	UpdatedBy string `json:"updatedBy,omitempty"`
	UpdatedOn string `json:"updatedOn,omitempty"`
}

// FieldErrors flattens the loosely typed "errors" member into messages.
//
// The backend has been seen to send a list of strings, a list of objects
// with a message field, or an object keyed by field name. Anything else
// yields nil.
func (r *LoginResponse) FieldErrors() []string {
	return parseFieldErrors(r.Errors)
}

func parseFieldErrors(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return nonEmpty(single)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, messageOf(item)...)
		}
		return out
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		// An object with a message key is a single error, not a field map.
		if msgs := messageOf(raw); len(msgs) > 0 {
			return msgs
		}
		fields := make([]string, 0, len(byField))
		for field := range byField {
			fields = append(fields, field)
		}
		slices.Sort(fields)

		var out []string
		for _, field := range fields {
			out = append(out, parseFieldErrors(byField[field])...)
		}
		return out
	}

	return nil
}

// messageOf extracts the message from a string or an error object.
func messageOf(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nonEmpty(s)
	}

	var obj struct {
		Message        string `json:"message"`
		ErrorMessage   string `json:"errorMessage"`
		DefaultMessage string `json:"defaultMessage"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, m := range []string{obj.Message, obj.ErrorMessage, obj.DefaultMessage} {
		if out := nonEmpty(m); out != nil {
			return out
		}
	}
	return nil
}

func nonEmpty(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return []string{s}
}

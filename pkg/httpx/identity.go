package httpx

import (
	"context"
	"net/http"
)

// UserIDHeader identifies the logged in user to the backend.
const UserIDHeader = "X-User-Id"

// IdentityTransport attaches the current user id to outbound requests and
// reports authentication failures back to the caller.
//
// The header is advisory. The backend decides what a request may do.
type IdentityTransport struct {
	Base http.RoundTripper

	// UserID returns the id to send, or "" to send nothing.
	UserID func(ctx context.Context) string

	// IsPublic reports whether a target URL should go out without identity.
	IsPublic func(url string) bool

	// OnUnauthorized runs after a 401 response from a protected endpoint,
	// before the response is returned.
	OnUnauthorized func(req *http.Request)

	// OnForbidden runs after a 403 response from a protected endpoint.
	OnForbidden func(req *http.Request)
}

func (t *IdentityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	public := t.isPublic(req.URL.String())

	out := req
	if id := t.userID(req.Context()); id != "" && !public {
		out = req.Clone(req.Context())
		out.Header.Set(UserIDHeader, id)
		if out.Header.Get("Content-Type") == "" {
			out.Header.Set("Content-Type", "application/json")
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	// A public endpoint answering 401 is a failed login, not an expired session.
	if public {
		return resp, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if t.OnUnauthorized != nil {
			t.OnUnauthorized(req)
		}
	case http.StatusForbidden:
		if t.OnForbidden != nil {
			t.OnForbidden(req)
		}
	}
	return resp, nil
}

func (t *IdentityTransport) userID(ctx context.Context) string {
	if t.UserID == nil {
		return ""
	}
	return t.UserID(ctx)
}

func (t *IdentityTransport) isPublic(url string) bool {
	return t.IsPublic != nil && t.IsPublic(url)
}

package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
)

// publicEndpoints are backend calls made before anyone is logged in. They
// go out without an identity header. The backend enforces nothing based on
// this list.
var publicEndpoints = []string{
	"/user/login",
	"/tenant/createTenant",
	"/user/createUser",
	"/tenant/gstNoExists",
	"/tenant/contactEmailExists",
	"/tenant/contactPhoneNumberExists",
}

// IsPublicEndpoint reports whether url targets one of the public endpoints.
func IsPublicEndpoint(url string) bool {
	for _, p := range publicEndpoints {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// AccessPolicy answers authorization questions from the stored session. It
// never writes to storage.
type AccessPolicy struct {
	Sessions *SessionStore
}

func NewAccessPolicy(sessions *SessionStore) *AccessPolicy {
	return &AccessPolicy{Sessions: sessions}
}

func (a *AccessPolicy) IsAuthenticated(ctx context.Context) bool {
	return a.Sessions.IsValid(ctx)
}

// Role returns the user type of the stored profile, or "" when not
// authenticated. The cached userRole key is ignored.
func (a *AccessPolicy) Role(ctx context.Context) string {
	if !a.IsAuthenticated(ctx) {
		return ""
	}
	sess, ok := a.Sessions.ReadSession(ctx)
	if !ok {
		return ""
	}
	return sess.Profile.UserType
}

func (a *AccessPolicy) HasRole(ctx context.Context, role string) bool {
	if role == "" {
		return false
	}
	return a.Role(ctx) == role
}

// Allows reports whether the current session satisfies c.
func (a *AccessPolicy) Allows(ctx context.Context, c domain.Capability) bool {
	switch c.Kind {
	case domain.CapabilityNone:
		return true
	case domain.CapabilityAuthenticated:
		return a.IsAuthenticated(ctx)
	default:
		return a.HasRole(ctx, c.Role)
	}
}

func (a *AccessPolicy) IsPublicEndpoint(url string) bool {
	return IsPublicEndpoint(url)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testPolicy(t *testing.T) *RoutePolicy {
	t.Helper()
	p, err := NewRoutePolicy("/auth/login", "/dashboard", Authenticated, []Route{
		{Path: "/auth", Capability: None},
		{Path: "/dashboard", Capability: Authenticated, Label: "Dashboard", Order: 1},
		{Path: "/tenants", Capability: RequireRole("super-admin"), Label: "Tenants", Order: 2},
		{Path: "/configuration/", Capability: RequireRole("TenantUser"), Label: "Configuration", Order: 5},
	})
	require.NoError(t, err)
	return p
}

func TestParseCapability(t *testing.T) {
	t.Parallel()

	c, err := ParseCapability("none")
	require.NoError(t, err)
	require.Equal(t, None, c)

	c, err = ParseCapability(" any-authenticated ")
	require.NoError(t, err)
	require.Equal(t, Authenticated, c)

	c, err = ParseCapability("role:super-admin")
	require.NoError(t, err)
	require.Equal(t, RequireRole("super-admin"), c)
	require.Equal(t, "role:super-admin", c.String())

	_, err = ParseCapability("role:")
	require.ErrorIs(t, err, ErrInvalidCapability)

	_, err = ParseCapability("admin")
	require.ErrorIs(t, err, ErrInvalidCapability)
}

func TestRoutePolicyLookup(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)

	require.Equal(t, None, p.Lookup("/auth/login"))
	require.Equal(t, None, p.Lookup("/auth/signup?x=1"))
	require.Equal(t, Authenticated, p.Lookup("/dashboard"))
	require.Equal(t, Authenticated, p.Lookup("/dashboard/"))
	require.Equal(t, RequireRole("super-admin"), p.Lookup("/tenants"))
	require.Equal(t, RequireRole("TenantUser"), p.Lookup("/configuration/competency-list"))
	require.Equal(t, Authenticated, p.Lookup("/unknown"), "unmatched paths use the default")
	require.Equal(t, Authenticated, p.Lookup(""))
}

func TestRoutePolicyValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRoutePolicy("auth/login", "/dashboard", Authenticated, nil)
	require.Error(t, err)

	_, err = NewRoutePolicy("/auth/login", "/dashboard", Authenticated, []Route{
		{Path: "/a"}, {Path: "/a/"},
	})
	require.Error(t, err)

	_, err = NewRoutePolicy("/auth/login", "/dashboard", Authenticated, []Route{{Path: "relative"}})
	require.Error(t, err)
}

func TestRoutePolicyOrdering(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)

	var paths []string
	for _, r := range p.Routes() {
		paths = append(paths, r.Path)
	}
	require.Equal(t, []string{"/auth", "/dashboard", "/tenants", "/configuration"}, paths)
}

func TestRedirectString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/dashboard", Redirect{Path: "/dashboard"}.String())
	require.Equal(t, "/auth/login?returnUrl=/dashboard", Redirect{Path: "/auth/login", ReturnURL: "/dashboard"}.String())
	require.Equal(t,
		"/auth/login?returnUrl=/candidates%3Fpage%3D2%26q%3Da+b",
		Redirect{Path: "/auth/login", ReturnURL: "/candidates?page=2&q=a b"}.String(),
	)

	r := ParseLocation("/auth/login?returnUrl=/candidates%3Fpage%3D2")
	require.Equal(t, "/auth/login", r.Path)
	require.Equal(t, "/candidates?page=2", r.ReturnURL)
}

func TestSessionBound(t *testing.T) {
	t.Parallel()

	require.True(t, Session{Token: "a", LastIssuedToken: "a"}.Bound())
	require.False(t, Session{Token: "", LastIssuedToken: ""}.Bound())
	require.False(t, Session{Token: "a", LastIssuedToken: "b"}.Bound())
}

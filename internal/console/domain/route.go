package domain

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type CapabilityKind int

const (
	CapabilityNone CapabilityKind = iota
	CapabilityAuthenticated
	CapabilityRole
)

// Capability is the access level a route requires.
type Capability struct {
	Kind CapabilityKind
	Role string // set only for CapabilityRole
}

var (
	None          = Capability{Kind: CapabilityNone}
	Authenticated = Capability{Kind: CapabilityAuthenticated}
)

// RequireRole returns the capability for a specific role.
func RequireRole(role string) Capability {
	return Capability{Kind: CapabilityRole, Role: role}
}

var ErrInvalidCapability = errors.New("domain: invalid capability")

// ParseCapability accepts "none", "any-authenticated" and "role:<name>".
func ParseCapability(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "none":
		return None, nil
	case s == "any-authenticated":
		return Authenticated, nil
	case strings.HasPrefix(s, "role:"):
		role := strings.TrimSpace(strings.TrimPrefix(s, "role:"))
		if role == "" {
			return Capability{}, fmt.Errorf("%w: empty role in %q", ErrInvalidCapability, s)
		}
		return RequireRole(role), nil
	default:
		return Capability{}, fmt.Errorf("%w: %q", ErrInvalidCapability, s)
	}
}

func (c Capability) String() string {
	switch c.Kind {
	case CapabilityNone:
		return "none"
	case CapabilityAuthenticated:
		return "any-authenticated"
	default:
		return "role:" + c.Role
	}
}

// Route is one entry of the route table. Label and Order only matter for
// the menu; routes without a label are not listed.
type Route struct {
	Path       string
	Capability Capability
	Label      string
	Order      int
}

// RoutePolicy maps paths to capabilities. It is immutable once built.
type RoutePolicy struct {
	routes  map[string]Route
	ordered []Route
	login   string
	landing string
	def     Capability
}

// NewRoutePolicy validates routes and builds the lookup table. Paths that
// match nothing require def.
func NewRoutePolicy(login, landing string, def Capability, routes []Route) (*RoutePolicy, error) {
	if !strings.HasPrefix(login, "/") || !strings.HasPrefix(landing, "/") {
		return nil, fmt.Errorf("domain: login and landing paths must be absolute (got %q, %q)", login, landing)
	}

	p := &RoutePolicy{
		routes:  make(map[string]Route, len(routes)),
		login:   login,
		landing: landing,
		def:     def,
	}

	for _, r := range routes {
		path := CleanPath(r.Path)
		if !strings.HasPrefix(path, "/") {
			return nil, fmt.Errorf("domain: route path %q must be absolute", r.Path)
		}
		if _, dup := p.routes[path]; dup {
			return nil, fmt.Errorf("domain: duplicate route %q", path)
		}
		r.Path = path
		p.routes[path] = r
		p.ordered = append(p.ordered, r)
	}

	slices.SortStableFunc(p.ordered, func(a, b Route) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Path, b.Path)
	})

	return p, nil
}

// Lookup returns the capability required for path: the exact entry, else
// the closest ancestor entry, else the default.
func (p *RoutePolicy) Lookup(path string) Capability {
	if r, ok := p.Match(path); ok {
		return r.Capability
	}
	return p.def
}

// Match returns the route entry governing path, if any.
func (p *RoutePolicy) Match(path string) (Route, bool) {
	path = CleanPath(path)
	for {
		if r, ok := p.routes[path]; ok {
			return r, true
		}
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			break
		}
		path = path[:i]
	}
	r, ok := p.routes["/"]
	return r, ok
}

// Routes returns the table ordered for display.
func (p *RoutePolicy) Routes() []Route {
	return slices.Clone(p.ordered)
}

func (p *RoutePolicy) LoginPath() string   { return p.login }
func (p *RoutePolicy) LandingPath() string { return p.landing }
func (p *RoutePolicy) Default() Capability { return p.def }

// CleanPath drops query, fragment and trailing slashes.
func CleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

// Redirect is a navigation instruction for the routing layer.
type Redirect struct {
	Path      string
	ReturnURL string // empty when no return target is carried
}

// String renders the redirect as a location, e.g. /auth/login?returnUrl=/dashboard.
func (r Redirect) String() string {
	if r.ReturnURL == "" {
		return r.Path
	}
	return r.Path + "?returnUrl=" + escapeQueryValue(r.ReturnURL)
}

var queryUnescaper = strings.NewReplacer("%2F", "/", "%3A", ":", "%40", "@")

// escapeQueryValue escapes like url.QueryEscape but leaves path separators
// readable, matching what browser routers emit.
func escapeQueryValue(s string) string {
	return queryUnescaper.Replace(url.QueryEscape(s))
}

// ParseLocation splits a rendered location back into path and return target.
func ParseLocation(loc string) Redirect {
	u, err := url.Parse(loc)
	if err != nil {
		return Redirect{Path: loc}
	}
	return Redirect{Path: u.Path, ReturnURL: u.Query().Get("returnUrl")}
}

package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/pkg/httpx"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
)

type GuardState int

const (
	Idle GuardState = iota
	Evaluating
	Allowed
	Denied
)

func (s GuardState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Navigator is the routing layer. Navigate may be called from any goroutine.
type Navigator interface {
	Navigate(to domain.Redirect)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(to domain.Redirect)

func (f NavigatorFunc) Navigate(to domain.Redirect) { f(to) }

// Decision is the outcome of one guard evaluation.
type Decision struct {
	State    GuardState // Allowed or Denied
	Path     string
	Redirect domain.Redirect // zero when Allowed
}

func (d Decision) Allowed() bool { return d.State == Allowed }

// NavigationGuard gates every route transition and decorates outbound
// backend calls.
type NavigationGuard struct {
	Policy    *domain.RoutePolicy
	Access    *AccessPolicy
	Navigator Navigator

	mu      sync.Mutex
	state   GuardState
	current string
}

func NewNavigationGuard(policy *domain.RoutePolicy, access *AccessPolicy, nav Navigator) *NavigationGuard {
	return &NavigationGuard{
		Policy:    policy,
		Access:    access,
		Navigator: nav,
	}
}

// State returns the state left by the last event.
func (g *NavigationGuard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the last path the guard allowed.
func (g *NavigationGuard) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// OnRouteChange evaluates an in-app route change.
func (g *NavigationGuard) OnRouteChange(ctx context.Context, path string) Decision {
	return g.handle(ctx, "route_change", path)
}

// OnHistoryNavigation evaluates a back or forward step to path.
func (g *NavigationGuard) OnHistoryNavigation(ctx context.Context, path string) Decision {
	return g.handle(ctx, "history", path)
}

func (g *NavigationGuard) handle(ctx context.Context, event, path string) Decision {
	g.mu.Lock()
	g.state = Evaluating
	g.mu.Unlock()

	d := g.Evaluate(ctx, path)

	g.mu.Lock()
	g.state = d.State
	if d.Allowed() {
		g.current = d.Path
	}
	g.mu.Unlock()

	if d.State == Denied {
		slogx.FromContext(ctx).Info("navigation denied",
			slog.String("event", event),
			slog.String("path", d.Path),
			slog.String("redirect", d.Redirect.String()),
		)
		if g.Navigator != nil {
			g.Navigator.Navigate(d.Redirect)
		}
	}
	return d
}

// Evaluate decides whether path may be entered. An unauthenticated
// denial also heals whatever broken session state caused it.
func (g *NavigationGuard) Evaluate(ctx context.Context, path string) Decision {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	required := g.Policy.Lookup(path)

	if required.Kind == domain.CapabilityNone {
		return Decision{State: Allowed, Path: path}
	}

	if !g.Access.IsAuthenticated(ctx) {
		if err := g.Access.Sessions.Heal(ctx); err != nil {
			slogx.FromContext(ctx).Warn("session heal failed", slog.Any("error", err))
		}
		return Decision{State: Denied, Path: path, Redirect: g.LoginRedirect(path)}
	}

	if required.Kind == domain.CapabilityRole && !g.Access.HasRole(ctx, required.Role) {
		return Decision{State: Denied, Path: path, Redirect: domain.Redirect{Path: g.Policy.LandingPath()}}
	}

	return Decision{State: Allowed, Path: path}
}

// LoginRedirect points at the login page, returning to returnTo afterwards.
func (g *NavigationGuard) LoginRedirect(returnTo string) domain.Redirect {
	r := domain.Redirect{Path: g.Policy.LoginPath()}
	if returnTo != "" && domain.CleanPath(returnTo) != g.Policy.LoginPath() {
		r.ReturnURL = returnTo
	}
	return r
}

// Transport wraps base so backend calls carry the user id and a 401 ends
// the session.
func (g *NavigationGuard) Transport(base http.RoundTripper) http.RoundTripper {
	sessions := g.Access.Sessions
	return &httpx.IdentityTransport{
		Base:     base,
		UserID:   sessions.UserID,
		IsPublic: IsPublicEndpoint,
		OnUnauthorized: func(req *http.Request) {
			ctx := context.WithoutCancel(req.Context())
			l := slogx.FromContext(ctx)
			l.Warn("backend rejected session", slog.String("url", req.URL.String()))
			if err := sessions.Clear(ctx); err != nil {
				l.Error("failed to clear session", slog.Any("error", err))
			}
			if g.Navigator != nil {
				g.Navigator.Navigate(g.LoginRedirect(g.Current()))
			}
		},
		OnForbidden: func(req *http.Request) {
			slogx.FromContext(req.Context()).Warn("backend refused request", slog.String("url", req.URL.String()))
		},
	}
}

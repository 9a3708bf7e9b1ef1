package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
)

// History is the console's back stack.
type History interface {
	Push(path string)
	Current() string
}

// NavigationHistory is an in-memory History safe for concurrent use.
type NavigationHistory struct {
	mu      sync.Mutex
	entries []string
}

func NewNavigationHistory(start string) *NavigationHistory {
	h := &NavigationHistory{}
	if start != "" {
		h.entries = append(h.entries, start)
	}
	return h
}

func (h *NavigationHistory) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	h.mu.Unlock()
}

// Current returns the top entry, or "" when empty.
func (h *NavigationHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// Back drops the top entry and returns the one below it. ok is false when
// there is nothing to go back to.
func (h *NavigationHistory) Back() (path string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < 2 {
		return "", false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

func (h *NavigationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// CrossContextSync keeps this console in step with logins and logouts made
// by other consoles, and stops back navigation from reopening screens after
// a logout.
type CrossContextSync struct {
	Changes  store.Notifier // the persistent scope
	Sessions *SessionStore
	Guard    *NavigationGuard
	History  History
	Logger   *slog.Logger

	mu     sync.Mutex
	cancel func()
}

func NewCrossContextSync(changes store.Notifier, sessions *SessionStore, guard *NavigationGuard, history History, logger *slog.Logger) *CrossContextSync {
	return &CrossContextSync{
		Changes:  changes,
		Sessions: sessions,
		Guard:    guard,
		History:  history,
		Logger:   logger,
	}
}

// Start listens for changes made by other consoles and arms the history.
// Calling Start twice has no further effect.
func (s *CrossContextSync) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.cancel = s.Changes.Subscribe(s.onChange)
	s.Arm()
}

// Stop unsubscribes. It is safe to call without Start.
func (s *CrossContextSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Arm pushes a synthetic entry for the current location so the next back
// step lands on it instead of a screen from the old session.
func (s *CrossContextSync) Arm() {
	if cur := s.History.Current(); cur != "" {
		s.History.Push(cur)
	}
}

// OnPopState handles a back or forward step to path. When no session is
// valid it re-arms the history, redirects to login and returns true: the
// caller must then drop the navigation. The guard still checks every
// screen on entry.
func (s *CrossContextSync) OnPopState(ctx context.Context, path string) bool {
	if s.Guard.Access.IsAuthenticated(ctx) {
		return false
	}
	s.History.Push(path)
	s.navigate(s.Guard.LoginRedirect(""))
	return true
}

// Logout ends the session for every console sharing the persistent scope.
func (s *CrossContextSync) Logout(ctx context.Context) error {
	err := s.Sessions.Clear(ctx)
	if err != nil {
		s.logger().Error("logout failed to clear session", slog.Any("error", err))
	} else {
		s.logger().Info("logged out")
	}
	s.navigate(s.Guard.LoginRedirect(""))
	s.Arm()
	return err
}

func (s *CrossContextSync) onChange(c store.Change) {
	if c.Key != KeyLoggedIn {
		return
	}
	if !c.Deleted && c.Value == loggedInValue {
		return
	}

	l := s.logger()
	l.Info("logged out by another console", slog.String("origin", c.Origin))

	ctx := slogx.WithContext(context.Background(), l)
	if err := s.Sessions.Clear(ctx); err != nil {
		l.Error("failed to clear session", slog.Any("error", err))
	}
	s.navigate(s.Guard.LoginRedirect(""))
}

func (s *CrossContextSync) navigate(to domain.Redirect) {
	if s.Guard.Navigator != nil {
		s.Guard.Navigator.Navigate(to)
	}
}

func (s *CrossContextSync) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/routes"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

type navRecorder struct {
	mu  sync.Mutex
	got []domain.Redirect
}

func (r *navRecorder) Navigate(to domain.Redirect) {
	r.mu.Lock()
	r.got = append(r.got, to)
	r.mu.Unlock()
}

func (r *navRecorder) all() []domain.Redirect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Redirect(nil), r.got...)
}

func (r *navRecorder) last(t *testing.T) domain.Redirect {
	t.Helper()
	got := r.all()
	require.NotEmpty(t, got, "no navigation recorded")
	return got[len(got)-1]
}

// console is one console context: a handle on the shared persistent
// backing plus its own tab-local scope.
type console struct {
	persistent *memory.Scope
	local      *memory.Scope
	sessions   *SessionStore
	access     *AccessPolicy
	policy     *domain.RoutePolicy
	nav        *navRecorder
	guard      *NavigationGuard
	history    *NavigationHistory
	sync       *CrossContextSync
}

func newConsole(t *testing.T, backing *memory.Backing) *console {
	t.Helper()

	policy, err := routes.Default()
	require.NoError(t, err)

	c := &console{
		persistent: backing.Open(),
		local:      memory.NewScope(),
		policy:     policy,
		nav:        &navRecorder{},
		history:    NewNavigationHistory("/auth/login"),
	}
	c.sessions = NewSessionStore(c.persistent, c.local)
	c.access = NewAccessPolicy(c.sessions)
	c.guard = NewNavigationGuard(policy, c.access, c.nav)
	c.sync = NewCrossContextSync(c.persistent, c.sessions, c.guard, c.history, nil)
	t.Cleanup(c.sync.Stop)
	return c
}

func newSingleConsole(t *testing.T) *console {
	return newConsole(t, memory.NewBacking())
}

func (c *console) login(t *testing.T, role string) {
	t.Helper()
	require.NoError(t, c.sessions.WriteSession(context.Background(), activeProfile(role), role))
	require.True(t, c.access.IsAuthenticated(context.Background()))
}

func (c *console) persistentKeys(t *testing.T) []string {
	t.Helper()
	keys, err := c.persistent.Keys(context.Background())
	require.NoError(t, err)
	return keys
}

func activeProfile(role string) domain.UserProfile {
	return domain.UserProfile{
		ID:       "6650f1",
		UserID:   "u-100",
		FullName: "Ada Lovelace",
		TenantID: "t-7",
		EmailID:  "ada@example.com",
		Mobile:   "0400000000",
		UserType: role,
		Active:   true,
	}
}

var errDiskFull = errors.New("disk full")

// failingScope fails writes to one key.
type failingScope struct {
	store.Scope
	failKey string
}

func (f *failingScope) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errDiskFull
	}
	return f.Scope.Set(ctx, key, value)
}

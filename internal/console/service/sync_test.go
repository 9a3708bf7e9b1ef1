package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestExternalLogoutInvalidatesContext(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewBacking()
	other := newConsole(t, backing)
	c := newConsole(t, backing)

	c.login(t, "TenantUser")
	c.sync.Start()

	require.NoError(t, other.persistent.Set(ctx, KeyLoggedIn, "false"))

	require.False(t, c.access.IsAuthenticated(ctx))
	require.Equal(t, "/auth/login", c.nav.last(t).String())
	require.Empty(t, c.persistentKeys(t))
}

func TestExternalDeletionInvalidatesContext(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewBacking()
	other := newConsole(t, backing)
	c := newConsole(t, backing)

	c.login(t, "TenantUser")
	c.sync.Start()

	require.NoError(t, other.persistent.Clear(ctx))

	require.False(t, c.access.IsAuthenticated(ctx))
	require.Len(t, c.nav.all(), 1)
}

func TestLogoutPropagates(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewBacking()
	a := newConsole(t, backing)
	b := newConsole(t, backing)

	a.login(t, "TenantUser")
	a.sync.Start()
	b.sync.Start()

	require.NoError(t, a.sync.Logout(ctx))

	require.False(t, a.access.IsAuthenticated(ctx))
	require.Len(t, a.nav.all(), 1, "own writes must not echo back")
	require.Equal(t, "/auth/login", b.nav.last(t).String())
}

func TestIgnoresUnrelatedChanges(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewBacking()
	other := newConsole(t, backing)
	c := newConsole(t, backing)

	c.login(t, "TenantUser")
	c.sync.Start()

	require.NoError(t, other.persistent.Set(ctx, KeyLoggedIn, "true"))
	require.NoError(t, other.persistent.Set(ctx, "theme", "dark"))

	require.True(t, c.access.IsAuthenticated(ctx))
	require.Empty(t, c.nav.all())
}

func TestStopUnsubscribes(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewBacking()
	other := newConsole(t, backing)
	c := newConsole(t, backing)

	c.login(t, "TenantUser")
	c.sync.Start()
	c.sync.Start()
	c.sync.Stop()

	require.NoError(t, other.persistent.Set(ctx, KeyLoggedIn, "false"))
	require.Empty(t, c.nav.all())

	// The flag is gone, so the guard still refuses on the next check.
	require.False(t, c.access.IsAuthenticated(ctx))
}

func TestBackNavigationAfterLogout(t *testing.T) {
	ctx := context.Background()
	c := newSingleConsole(t)
	c.sync.Start()
	require.Equal(t, 2, c.history.Len())

	c.login(t, "TenantUser")
	c.history.Push("/dashboard")
	c.history.Push("/candidates")

	require.NoError(t, c.sync.Logout(ctx))
	c.history.Push("/auth/login")

	path, ok := c.history.Back()
	require.True(t, ok)

	before := c.history.Len()
	require.True(t, c.sync.OnPopState(ctx, path))
	require.Equal(t, before+1, c.history.Len())
	require.Equal(t, path, c.history.Current())
	require.Equal(t, "/auth/login", c.nav.last(t).String())

	// The guard still refuses the popped screen on its own.
	require.False(t, c.guard.OnHistoryNavigation(ctx, "/candidates").Allowed())
}

func TestBackNavigationWhileLoggedIn(t *testing.T) {
	ctx := context.Background()
	c := newSingleConsole(t)
	c.login(t, "TenantUser")

	c.history.Push("/dashboard")
	c.history.Push("/candidates")

	path, ok := c.history.Back()
	require.True(t, ok)
	require.Equal(t, "/dashboard", path)
	require.False(t, c.sync.OnPopState(ctx, path))
	require.Empty(t, c.nav.all())
}

func TestNavigationHistory(t *testing.T) {
	h := NewNavigationHistory("")
	require.Empty(t, h.Current())
	_, ok := h.Back()
	require.False(t, ok)

	h.Push("/a")
	h.Push("/b")
	require.Equal(t, "/b", h.Current())

	path, ok := h.Back()
	require.True(t, ok)
	require.Equal(t, "/a", path)
	require.Equal(t, 1, h.Len())
}

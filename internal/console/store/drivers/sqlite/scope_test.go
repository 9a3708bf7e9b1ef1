package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func openScope(t *testing.T, s *sqlite.Store) *sqlite.Scope {
	t.Helper()

	sc, err := s.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func TestScopeBasics(t *testing.T) {
	ctx := context.Background()
	sc := openScope(t, newStore(t))

	_, err := sc.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, sc.Set(ctx, "userId", "u-1"))
	require.NoError(t, sc.Set(ctx, "userId", "u-2"))
	require.NoError(t, sc.Set(ctx, "isLoggedIn", "true"))

	v, err := sc.Get(ctx, "userId")
	require.NoError(t, err)
	require.Equal(t, "u-2", v)

	keys, err := sc.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"isLoggedIn", "userId"}, keys)

	require.NoError(t, sc.Delete(ctx, "userId"))
	require.NoError(t, sc.Delete(ctx, "userId"))

	require.NoError(t, sc.Clear(ctx))
	keys, err = sc.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestPollDeliversForeignChangesOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := openScope(t, s)
	b := openScope(t, s)

	var seenA, seenB []store.Change
	a.Subscribe(func(c store.Change) { seenA = append(seenA, c) })
	b.Subscribe(func(c store.Change) { seenB = append(seenB, c) })

	require.NoError(t, a.Set(ctx, "isLoggedIn", "true"))
	require.NoError(t, a.Set(ctx, "userId", "u-1"))

	n, err := a.Poll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, seenA)

	n, err = b.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "isLoggedIn", seenB[0].Key)
	require.Equal(t, "true", seenB[0].Value)
	require.Equal(t, a.Origin(), seenB[0].Origin)
	require.False(t, seenB[0].At.IsZero())

	// Already delivered changes are not replayed.
	n, err = b.Poll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, b.Clear(ctx))
	_, err = a.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, seenA, 2)
	for _, c := range seenA {
		require.True(t, c.Deleted)
	}
}

func TestOpenSkipsHistory(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := openScope(t, s)
	require.NoError(t, a.Set(ctx, "isLoggedIn", "true"))

	late := openScope(t, s)
	count := 0
	late.Subscribe(func(store.Change) { count++ })

	n, err := late.Poll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, count)

	v, err := late.Get(ctx, "isLoggedIn")
	require.NoError(t, err)
	require.Equal(t, "true", v)
}

func TestPruneChanges(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := openScope(t, s)

	require.NoError(t, a.Set(ctx, "k", "v"))

	n, err := s.PruneChanges(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.PruneChanges(ctx, -time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestWatcherDeliversChanges(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := openScope(t, s)
	b := openScope(t, s)

	got := make(chan store.Change, 4)
	b.Subscribe(func(c store.Change) { got <- c })

	w := sqlite.NewWatcher(b, slogx.Discard(), 10*time.Millisecond, time.Hour, time.Hour)
	w.Start()
	t.Cleanup(w.Stop)

	require.NoError(t, a.Set(ctx, "isLoggedIn", "false"))

	select {
	case c := <-got:
		require.Equal(t, "isLoggedIn", c.Key)
		require.Equal(t, "false", c.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not deliver change")
	}
}

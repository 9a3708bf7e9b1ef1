package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func menuPaths(items []MenuEntry) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Path)
	}
	return out
}

func TestMenuByRole(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out", func(t *testing.T) {
		c := newSingleConsole(t)
		require.Empty(t, Menu(ctx, c.policy, c.access))
	})

	t.Run("tenant user", func(t *testing.T) {
		c := newSingleConsole(t)
		c.login(t, "TenantUser")

		items := Menu(ctx, c.policy, c.access)
		require.Len(t, items, 4)
		require.Equal(t, "Configuration", items[3].Label)
		require.Len(t, items[3].Children, 1)
		require.Equal(t, "/configuration/competency-list", items[3].Children[0].Path)

		flat := Flatten(items)
		require.Equal(t, []string{
			"/dashboard",
			"/users",
			"/candidates",
			"/configuration",
			"/configuration/competency-list",
		}, menuPaths(flat))
		require.Equal(t, 1, flat[4].Depth)
	})

	t.Run("super admin", func(t *testing.T) {
		c := newSingleConsole(t)
		c.login(t, "super-admin")

		require.Equal(t, []string{"/dashboard", "/tenants"}, menuPaths(Flatten(Menu(ctx, c.policy, c.access))))
	})
}

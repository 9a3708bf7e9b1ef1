package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
)

type MenuItem struct {
	Path     string
	Label    string
	Children []MenuItem
}

// Menu builds the sidebar from the labelled routes the current session may
// enter. A route nests under its closest labelled ancestor and is hidden
// with it.
func Menu(ctx context.Context, policy *domain.RoutePolicy, access *AccessPolicy) []MenuItem {
	var labelled []domain.Route
	for _, r := range policy.Routes() {
		if r.Label != "" {
			labelled = append(labelled, r)
		}
	}

	allowed := make(map[string]bool, len(labelled))
	for _, r := range labelled {
		allowed[r.Path] = access.Allows(ctx, r.Capability)
	}

	parentOf := func(path string) string {
		best := ""
		for _, r := range labelled {
			if r.Path != path && isAncestor(r.Path, path) && len(r.Path) > len(best) {
				best = r.Path
			}
		}
		return best
	}

	var build func(parent string) []MenuItem
	build = func(parent string) []MenuItem {
		var items []MenuItem
		for _, r := range labelled {
			if parentOf(r.Path) != parent || !allowed[r.Path] {
				continue
			}
			items = append(items, MenuItem{
				Path:     r.Path,
				Label:    r.Label,
				Children: build(r.Path),
			})
		}
		return items
	}
	return build("")
}

// MenuEntry is a MenuItem placed in a flat list.
type MenuEntry struct {
	MenuItem
	Depth int
}

// Flatten lists items depth first.
func Flatten(items []MenuItem) []MenuEntry {
	var out []MenuEntry
	var walk func(items []MenuItem, depth int)
	walk = func(items []MenuItem, depth int) {
		for _, it := range items {
			out = append(out, MenuEntry{MenuItem: it, Depth: depth})
			walk(it.Children, depth+1)
		}
	}
	walk(items, 0)
	return out
}

func isAncestor(ancestor, path string) bool {
	if ancestor == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, ancestor+"/")
}

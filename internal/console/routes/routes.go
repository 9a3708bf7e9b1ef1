// Package routes loads the console's route table.
package routes

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultTable []byte

type file struct {
	Login   string  `yaml:"login"`
	Landing string  `yaml:"landing"`
	Default string  `yaml:"default"`
	Routes  []entry `yaml:"routes"`
}

type entry struct {
	Path       string `yaml:"path"`
	Capability string `yaml:"capability"`
	Label      string `yaml:"label"`
	Order      int    `yaml:"order"`
}

// Default returns the built-in route table.
func Default() (*domain.RoutePolicy, error) {
	return Parse(defaultTable)
}

// Load reads a route table from path, or the built-in one when path is "".
func Load(path string) (*domain.RoutePolicy, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse builds a policy from YAML. Missing login, landing and default
// values fall back to /auth/login, /dashboard and any-authenticated.
func Parse(data []byte) (*domain.RoutePolicy, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	if f.Login == "" {
		f.Login = "/auth/login"
	}
	if f.Landing == "" {
		f.Landing = "/dashboard"
	}
	if f.Default == "" {
		f.Default = "any-authenticated"
	}

	def, err := domain.ParseCapability(f.Default)
	if err != nil {
		return nil, fmt.Errorf("default capability: %w", err)
	}

	routes := make([]domain.Route, 0, len(f.Routes))
	for i, e := range f.Routes {
		c, err := domain.ParseCapability(e.Capability)
		if err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i, e.Path, err)
		}
		routes = append(routes, domain.Route{
			Path:       e.Path,
			Capability: c,
			Label:      e.Label,
			Order:      e.Order,
		})
	}

	return domain.NewRoutePolicy(f.Login, f.Landing, def, routes)
}

// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web lets every
// component add its routes to one shared router, in its own chi.Group so
// component middleware stays local, after calling Init() on those that
// implement Initializer.  Migrations() are applied when a SQL pool is
// configured.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/storefront/internal/config"
)

// Deps exposes process-wide resources to components during Init.  DB is nil
// unless a SQL-backed feature is enabled.
type Deps struct {
	Config *config.Config
	DB     *sqlx.DB
}

// Initializer is optional.  If a Component implements it, cmd/web calls
// Init(deps) once before mounting routes.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes()
// registers BOTH page and API endpoints on r, e.g:
//
//	r.Get("/", getHome)
//	r.Route("/api/preview-mode", func(api chi.Router) { ... })
type Component interface {
	Name() string
	Routes(r chi.Router)
	Migrations() []string
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name so mount order is
// stable across runs.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and adds its routes to r.
func Mount(r chi.Router, deps Deps) error {
	for _, c := range All() {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(deps); err != nil {
				return fmt.Errorf("init component %s: %w", c.Name(), err)
			}
		}
		r.Group(c.Routes)
	}
	return nil
}

// Migrations collects every registered component's schema statements.
func Migrations() []string {
	var out []string
	for _, c := range All() {
		out = append(out, c.Migrations()...)
	}
	return out
}

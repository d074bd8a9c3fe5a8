// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/portal blank-imports
// the components it ships, calls Init(deps) on each once the services are
// built, and then lets every component add its routes to the
// authenticated /api router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Routes() receives the /api sub-router with authentication already
// applied and registers handlers on it directly, e.g:
//
//	func (c *Comp) Routes(r chi.Router) {
//		r.Get("/tools", c.list)
//		r.With(acl.RequireRole(auth.RoleAdmin)).Post("/tools", c.create)
//	}
type Component interface {
	Name() string
	Init(Deps) error
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A second
// registration under the same name replaces the first.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so route
// registration order is stable between runs.
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

// Mount initialises every registered component with deps and adds its
// routes to r.  The first Init error aborts.
func Mount(r chi.Router, deps Deps) error {
	for _, c := range All() {
		if err := c.Init(deps); err != nil {
			return &InitError{Component: c.Name(), Err: err}
		}
		c.Routes(r)
	}
	return nil
}

// InitError names the component whose Init failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return "component " + e.Component + ": init: " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }

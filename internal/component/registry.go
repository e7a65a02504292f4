// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  main blank-imports the
// components it wants, builds an Env, and calls Mount, which runs every
// Init and then copies each component's routes onto the site router.
//
// Routes are copied with chi.Walk instead of mounting each sub-router at
// “/”, because chi refuses two mounts on the same pattern.

package component

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/serenity/internal/config"
	"github.com/yanizio/serenity/internal/session"
	"github.com/yanizio/serenity/internal/view"
)

// Env is what a component may depend on.  Built once in main.
type Env struct {
	Config   *config.Config
	Sessions *session.Store
	Views    *view.Renderer
	Log      *zap.SugaredLogger
}

// Component contract.
//
// Init runs once before Routes.  Routes() should declare BOTH page and API
// endpoints with absolute paths, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/contact", c.getContact)
//	r.Route("/api/contact", func(api chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Init(Env) error
	Routes() chi.Router
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

// All returns every registered component sorted by name.
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

// Mount initialises every registered component and copies its routes onto
// r.  Two components declaring the same method and pattern is an error.
func Mount(r chi.Router, env Env) error {
	return mount(r, env, All())
}

func mount(r chi.Router, env Env, comps []Component) error {
	if env.Log == nil {
		env.Log = zap.S()
	}
	owner := map[string]string{}
	for _, c := range comps {
		if err := c.Init(env); err != nil {
			return fmt.Errorf("component %s: init: %w", c.Name(), err)
		}
		sub := c.Routes()
		if sub == nil {
			continue
		}
		n := 0
		err := chi.Walk(sub, func(method, route string, h http.Handler, mws ...func(http.Handler) http.Handler) error {
			key := method + " " + route
			if prev, dup := owner[key]; dup {
				return fmt.Errorf("route %s already registered by %s", key, prev)
			}
			owner[key] = c.Name()
			r.With(mws...).Method(method, route, h)
			n++
			return nil
		})
		if err != nil {
			return fmt.Errorf("component %s: %w", c.Name(), err)
		}
		env.Log.Infow("component mounted", "component", c.Name(), "routes", n)
	}
	return nil
}

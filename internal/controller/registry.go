// internal/controller/registry.go
//
// Controller registry (cycle-free).
//
// Each concrete controller package calls controller.Register() in an
// init() function.  The resolver instantiates a fresh controller per
// request through the registered Factory, keyed by “group/name”.  Keys
// are compared lower-case, so “Home/Index” and “home/index” are the same
// destination.

package controller

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/yanizio/conductor/internal/core"
)

// ErrNotFound is returned by Lookup for unregistered specs.
var ErrNotFound = errors.New("controller not registered")

// Factory builds a controller for one request.  It may start asynchronous
// construction work; see Base.Construct.
type Factory func(rc *core.Context) (Controller, error)

// Registry maps “group/name” to a Factory.  The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Default is the Registry fed by init()-time Register calls.
var Default = NewRegistry()

// Register adds f to Default.
func Register(group, name string, f Factory) { Default.Register(group, name, f) }

// Register adds or replaces the factory for group/name.
func (r *Registry) Register(group, name string, f Factory) {
	r.mu.Lock()
	r.factories[key(group+"/"+name)] = f
	r.mu.Unlock()
}

// Lookup instantiates the controller for spec (“group/name”).
func (r *Registry) Lookup(spec string, rc *core.Context) (Controller, error) {
	r.mu.RLock()
	f, ok := r.factories[key(spec)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return f(rc)
}

// Names returns every registered spec, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func key(spec string) string { return strings.ToLower(strings.TrimSpace(spec)) }

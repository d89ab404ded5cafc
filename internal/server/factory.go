package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// DefaultFactory names the factory used when http.create_server_fn is
// empty.
const DefaultFactory = "default"

// Factory builds the *http.Server a process serves on.  Register one to
// customise TLS, timeouts, or connection hooks, then select it with
// http.create_server_fn.
type Factory func(addr string, handler http.Handler) *http.Server

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{DefaultFactory: New}
)

// Register adds f under name.  Typically called from init().  A repeated
// name replaces the earlier factory.
func Register(name string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[strings.ToLower(strings.TrimSpace(name))] = f
}

// Lookup returns the factory for name, the default one when name is empty.
func Lookup(name string) (Factory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultFactory
	}
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	f, ok := factories[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("server factory %q not registered (have %s)",
			name, strings.Join(factoryNames(), ", "))
	}
	return f, nil
}

// factoryNames must be called with factoryMu held.
func factoryNames() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

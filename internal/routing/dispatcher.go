// internal/routing/dispatcher.go
//
// Default route resolver.
//
// Context
// -------
// The engine only needs three things from routing: fill in the request's
// group/controller/action, instantiate a controller by “group/name”, and
// normalise name tokens the same way both times.  Resolver captures that
// contract; Dispatcher is the path-based implementation shipped with the
// framework.
//
// Path grammar
// ------------
//
//	/[group/]controller/action[/key/value]...
//
// The first segment is a group only if it appears in `app.group_list`.
// Missing parts take the configured defaults.  Trailing key/value pairs
// are merged into the query; values already in the query win.  Names set
// by the transport (WebSocket and CLI payloads may carry them) are kept.
//
// Notes
// -----
// • No pattern routing; aliases cover friendly URLs.
// • Oxford commas, two spaces after periods.

package routing

import (
	"context"
	"strings"

	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
)

// Resolver is what the engine consumes.
type Resolver interface {
	Resolve(ctx context.Context, rc *core.Context) error
	LookupController(ctx context.Context, spec string, rc *core.Context) (controller.Controller, error)
	Group(name string) string
	Controller(name string) string
	Action(name string) string
}

// Dispatcher implements Resolver over a controller.Registry.
type Dispatcher struct {
	cfg      config.App
	registry *controller.Registry
	aliases  *AliasCache
	groups   map[string]struct{}
}

var _ Resolver = (*Dispatcher)(nil)

// NewDispatcher wires a dispatcher.  aliases may be nil.
func NewDispatcher(cfg config.App, reg *controller.Registry, aliases *AliasCache) *Dispatcher {
	groups := make(map[string]struct{}, len(cfg.GroupList))
	for _, g := range cfg.GroupList {
		groups[strings.ToLower(g)] = struct{}{}
	}
	return &Dispatcher{cfg: cfg, registry: reg, aliases: aliases, groups: groups}
}

// Resolve fills rc's destination from rc.Path.
func (d *Dispatcher) Resolve(ctx context.Context, rc *core.Context) error {
	path := rc.Path
	if d.aliases != nil {
		if target, ok := d.aliases.Rewrite(ctx, path); ok {
			path = target
			rc.Path = target
		}
	}

	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	var group, ctrl, action string
	if len(segs) > 0 {
		if _, ok := d.groups[strings.ToLower(segs[0])]; ok {
			group, segs = segs[0], segs[1:]
		}
	}
	if len(segs) > 0 {
		ctrl, segs = segs[0], segs[1:]
	}
	if len(segs) > 0 {
		action, segs = segs[0], segs[1:]
	}
	for i := 0; i+1 < len(segs); i += 2 {
		if _, exists := rc.Query[segs[i]]; !exists {
			rc.Query[segs[i]] = segs[i+1]
		}
	}

	if rc.Group == "" {
		rc.Group = group
	}
	if rc.Controller == "" {
		rc.Controller = ctrl
	}
	if rc.Action == "" {
		rc.Action = action
	}
	rc.Group = d.Group(rc.Group)
	rc.Controller = d.Controller(rc.Controller)
	rc.Action = d.Action(rc.Action)
	return nil
}

// LookupController instantiates spec.  An unknown spec returns
// controller.ErrNotFound.
func (d *Dispatcher) LookupController(_ context.Context, spec string, rc *core.Context) (controller.Controller, error) {
	return d.registry.Lookup(spec, rc)
}

// Group lower-cases name, defaulting to app.default_group.
func (d *Dispatcher) Group(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return strings.ToLower(d.cfg.DefaultGroup)
	}
	return name
}

// Controller trims name, defaulting to app.default_controller.
func (d *Dispatcher) Controller(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return d.cfg.DefaultController
	}
	return name
}

// Action trims name, defaulting to app.default_action.
func (d *Dispatcher) Action(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return d.cfg.DefaultAction
	}
	return name
}

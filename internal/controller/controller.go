// internal/controller/controller.go
//
// Controller contract and capabilities.
//
// Context
// -------
// A controller exposes named actions.  Each Action carries the explicit
// list of parameter names the binder fills from the request, so nothing
// ever inspects function source at runtime.
//
// Everything else is an optional capability the engine checks for:
//
//   - Initializer   – construction finished asynchronously; wait for it.
//   - BeforeAction  – runs before every action of the controller.
//   - AfterAction   – runs after every action that succeeded.
//   - Caller        – catch-all for action names the controller lacks.
//
// Hooks and the catch-all receive the short action name (“view”) and the
// suffixed method name (“viewAction”).
//
// Notes
// -----
// • Embed Base to get Handle/Lookup/Construct/Ready for free.
// • Oxford commas, two spaces after periods.
package controller

import (
	"context"

	"github.com/yanizio/conductor/internal/binder"
	"github.com/yanizio/conductor/internal/fault"
)

// ActionFunc is an action body.  args are the bound values, in Params
// order, or nil when binding is off or Params is empty.
type ActionFunc func(ctx context.Context, args []string) error

// Action is a callable plus its declared parameter names.
type Action struct {
	Params []string
	Fn     ActionFunc
}

// Controller resolves a suffixed method name to an Action.
type Controller interface {
	Lookup(method string) (Action, bool)
}

// Initializer is implemented by controllers whose construction may still
// be running when the factory returns.
type Initializer interface {
	Ready(ctx context.Context) error
}

// BeforeAction is the per-controller pre-action hook.
type BeforeAction interface {
	Before(ctx context.Context, action, method string) error
}

// AfterAction is the per-controller post-action hook.
type AfterAction interface {
	After(ctx context.Context, action, method string) error
}

// Caller handles methods the controller does not define.
type Caller interface {
	Call(ctx context.Context, action, method string) error
}

/*──────────────────────────── Base ────────────────────────────────────────*/

// Base is an embeddable Controller with a method table and optional
// asynchronous construction.  Not safe to mutate after the factory
// returns.
type Base struct {
	methods map[string]Action

	started bool
	done    chan struct{}
	initErr error
}

var (
	_ Controller  = (*Base)(nil)
	_ Initializer = (*Base)(nil)
)

// Handle declares method with explicit parameter names.
func (b *Base) Handle(method string, params []string, fn ActionFunc) {
	if b.methods == nil {
		b.methods = map[string]Action{}
	}
	b.methods[method] = Action{Params: params, Fn: fn}
}

// HandleSig declares method with parameter names read from signature
// text such as "(id, page)".  Comments inside sig are ignored.
func (b *Base) HandleSig(method, sig string, fn ActionFunc) {
	b.Handle(method, binder.Params(sig), fn)
}

// Lookup implements Controller.
func (b *Base) Lookup(method string) (Action, bool) {
	a, ok := b.methods[method]
	return a, ok && a.Fn != nil
}

// Construct runs fn on its own goroutine.  Ready waits for it; a panic in
// fn becomes Ready's error.  Call at most once, from the factory.
func (b *Base) Construct(fn func() error) {
	b.started = true
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		b.initErr = fault.Capture(fn)
	}()
}

// Ready returns construction's error once it settles, or ctx's error.
// Transports detach request contexts, so ctx only ends with the process.
// Without Construct it returns nil at once.
func (b *Base) Ready(ctx context.Context) error {
	if !b.started {
		return nil
	}
	select {
	case <-b.done:
		return b.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Arg returns args[i], or "" when binding left it out.
func Arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

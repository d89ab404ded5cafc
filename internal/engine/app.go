// internal/engine/app.go
//
// Execution engine.
//
// Context
// -------
// App is built once per process (per worker when clustered) and shared by
// every transport.  For each inbound core.Context it creates a Request,
// which owns the single resolved destination for that unit of work and
// runs the lifecycle:
//
//	app_init → Dispatch → app_begin → action_init → Exec → app_end
//
// Each stage returns before the next starts.  The first failure skips the
// rest and lands in SendError, exactly once, through the fault boundary.
//
// Unrelated requests share nothing but App's read-only state, so they run
// concurrently without locks.
//
// Notes
// -----
// • Configuration arrives as an explicit value; nothing here reads
//   config.Get().
// • Oxford commas, two spaces after periods.
package engine

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/hook"
	"github.com/yanizio/conductor/internal/routing"
)

// nameRe is the identifier grammar for controller and action names.
var nameRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Options wires an App.
type Options struct {
	App      config.App
	HTTP     config.HTTP
	Resolver routing.Resolver
	Hooks    *hook.Pipeline // nil means hook.NewPipeline()
	Log      *zap.SugaredLogger
	Version  string
}

// App is the per-process engine.
type App struct {
	cfg      config.App
	http     config.HTTP
	resolver routing.Resolver
	hooks    *hook.Pipeline
	log      *zap.SugaredLogger
	version  string
}

// New returns an App.  Resolver is required.
func New(o Options) *App {
	if o.Hooks == nil {
		o.Hooks = hook.NewPipeline()
	}
	if o.Log == nil {
		o.Log = zap.S()
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	return &App{
		cfg:      o.App,
		http:     o.HTTP,
		resolver: o.Resolver,
		hooks:    o.Hooks,
		log:      o.Log,
		version:  o.Version,
	}
}

// Hooks exposes the pipeline so callers can register handlers after New.
func (a *App) Hooks() *hook.Pipeline { return a.hooks }

// Version is the string sent in X-Powered-By.
func (a *App) Version() string { return a.version }

// Request is one unit of work in flight.  Not safe for concurrent use.
type Request struct {
	app *App
	rc  *core.Context
	dst controller.Controller // the one resolved destination
}

// NewRequest binds rc to a.
func (a *App) NewRequest(rc *core.Context) *Request {
	return &Request{app: a, rc: rc}
}

// Context returns the request's core.Context.
func (r *Request) Context() *core.Context { return r.rc }

// Dispatch delegates to the resolver and returns its error unchanged.
func (r *Request) Dispatch(ctx context.Context) error {
	return r.app.resolver.Resolve(ctx, r.rc)
}

// lifecycle runs every stage in order.
func (r *Request) lifecycle(ctx context.Context) error {
	hooks := r.app.hooks
	if err := hooks.Run(ctx, hook.AppInit, r.rc); err != nil {
		return err
	}
	if err := r.Dispatch(ctx); err != nil {
		return err
	}
	if err := hooks.Run(ctx, hook.AppBegin, r.rc); err != nil {
		return err
	}
	if err := hooks.Run(ctx, hook.ActionInit, r.rc); err != nil {
		return err
	}
	if err := r.Exec(ctx); err != nil {
		return err
	}
	return hooks.Run(ctx, hook.AppEnd, r.rc)
}

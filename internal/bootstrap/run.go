// internal/bootstrap/run.go
//
// Process wiring.
//
// Context
// -------
// Turns a loaded *config.Config into a running process.  Three shapes:
//
//   - CLI       – one request from app.mode_data (or `conductor run`),
//     written to stdout.
//   - Single    – one process serving HTTP (and WebSocket) directly.
//   - Clustered – a supervisor binds the port and keeps `cluster.use_cluster`
//     copies of the binary alive; each worker serves on the inherited
//     socket.
//
// The supervisor never builds an engine.App; it only forks.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/cluster"
	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/database"
	"github.com/yanizio/conductor/internal/engine"
	"github.com/yanizio/conductor/internal/requestinfo"
	"github.com/yanizio/conductor/internal/routing"
	"github.com/yanizio/conductor/internal/server"
	"github.com/yanizio/conductor/internal/transport"
)

// NewApp builds the engine for cfg.  The returned cleanup releases the
// alias database, if one was opened.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, version string) (*engine.App, func(), error) {
	cleanup := func() {}

	var aliases *routing.AliasCache
	if dsn := cfg.Routing.AliasDSN; dsn != "" {
		db, err := database.Open(ctx, dsn)
		if err != nil {
			return nil, cleanup, fmt.Errorf("alias database: %w", err)
		}
		aliases = routing.NewAliasCache(db, cfg.Routing.AliasTTL)
		cleanup = func() { _ = db.Close() }
		log.Infow("route aliases enabled", "ttl", cfg.Routing.AliasTTL)
	}

	app := engine.New(engine.Options{
		App:      cfg.App,
		HTTP:     cfg.HTTP,
		Resolver: routing.NewDispatcher(cfg.App, controller.Default, aliases),
		Log:      log,
		Version:  version,
	})
	return app, cleanup, nil
}

// Run starts whatever app.mode asks for.
func Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, version string, out io.Writer) error {
	if cfg.App.Mode == "cli" {
		return RunCLI(ctx, cfg, log, version, cfg.App.ModeData, out)
	}
	return Serve(ctx, cfg, log, version)
}

// RunCLI executes one request for target and writes the body to out.
func RunCLI(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, version, target string, out io.Writer) error {
	if target == "" {
		return errors.New("cli mode needs a target url")
	}
	app, cleanup, err := NewApp(ctx, cfg, log, version)
	if err != nil {
		return err
	}
	defer cleanup()

	res := transport.RunCLI(ctx, app, target, out)
	return res.Err
}

// Serve runs the HTTP front in the role this process has.
func Serve(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, version string) error {
	role := cluster.DetectRole(cfg.Cluster.Workers)
	log.Infow("process role", "role", role.String())

	if role == cluster.RoleSupervisor {
		return supervise(ctx, cfg, log)
	}

	if err := requestinfo.InitGeo(cfg.HTTP.GeoIPDB); err != nil {
		return err
	}

	var ln net.Listener
	if role == cluster.RoleWorker {
		var err error
		if ln, err = cluster.InheritedListener(); err != nil {
			return err
		}
	}

	app, cleanup, err := NewApp(ctx, cfg, log, version)
	if err != nil {
		return err
	}
	defer cleanup()

	return server.Serve(ctx, server.Options{
		HTTP:     cfg.HTTP,
		App:      app,
		Listener: ln,
		Log:      log,
	})
}

func supervise(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	ln, err := server.Listen(cfg.HTTP)
	if err != nil {
		return err
	}
	defer ln.Close()

	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("supervisor needs a TCP listener, got %T", ln)
	}
	sp, err := cluster.NewExecSpawner(tcp)
	if err != nil {
		return err
	}
	log.Infow("listening", "addr", ln.Addr().String(), "workers", cfg.Cluster.Workers)
	return cluster.NewSupervisor(sp, cfg.Cluster.Workers, log).Run(ctx)
}

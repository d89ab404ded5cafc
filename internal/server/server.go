// internal/server/server.go
//
// Process HTTP front.
//
// Context
// -------
// Builds the chi router every serving process uses and runs it until the
// context ends:
//
//	requestinfo.Enrich → RequestID → RealIP → Recoverer → Security
//	  ├─ /metrics            promhttp (when http.metrics)
//	  └─ /*                  WebSocket adapter on upgrade requests
//	                         (when http.use_websocket), HTTP adapter
//	                         otherwise
//
// Listening
// ---------
// A worker serves on the listener its supervisor handed down.  Everyone
// else binds `:port`, or `127.0.0.1:port` when
// http.deny_remote_access_by_ip is set.
//
// Notes
// -----
// • Shutdown waits up to ShutdownGrace for in-flight requests.
// • Oxford commas, two spaces after periods.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/engine"
	security "github.com/yanizio/conductor/internal/middleware"
	"github.com/yanizio/conductor/internal/requestinfo"
	"github.com/yanizio/conductor/internal/transport"
)

// ShutdownGrace bounds graceful shutdown.
const ShutdownGrace = 10 * time.Second

// Options configures Serve.
type Options struct {
	HTTP     config.HTTP
	App      *engine.App
	Listener net.Listener // inherited from a supervisor; nil binds Addr
	Log      *zap.SugaredLogger
}

// Addr is the bind address for cfg.
func Addr(cfg config.HTTP) string {
	host := ""
	if cfg.DenyRemoteAccessByIP {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

// Listen binds Addr(cfg).
func Listen(cfg config.HTTP) (net.Listener, error) {
	ln, err := net.Listen("tcp", Addr(cfg))
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", Addr(cfg), err)
	}
	return ln, nil
}

// Handler returns the routed handler for app.
func Handler(app *engine.App, cfg config.HTTP, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.S()
	}
	httpAdapter := transport.NewHTTP(app)
	var wsAdapter *transport.WebSocket
	if cfg.UseWebsocket {
		wsAdapter = transport.NewWebSocket(app, log)
	}

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.SecurityHeaders {
		r.Use(security.Security)
	}

	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if wsAdapter != nil && transport.IsUpgrade(req) {
			wsAdapter.ServeHTTP(w, req)
			return
		}
		httpAdapter.ServeHTTP(w, req)
	}))
	return r
}

// Serve runs the HTTP front until ctx ends or the server fails.
func Serve(ctx context.Context, o Options) error {
	if o.Log == nil {
		o.Log = zap.S()
	}
	factory, err := Lookup(o.HTTP.CreateServerFn)
	if err != nil {
		return err
	}

	ln := o.Listener
	if ln == nil {
		if ln, err = Listen(o.HTTP); err != nil {
			return err
		}
	}

	srv := factory(ln.Addr().String(), Handler(o.App, o.HTTP, o.Log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.Log.Infow("listening", "addr", ln.Addr().String(),
			"websocket", o.HTTP.UseWebsocket)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownGrace)
		defer cancel()
		o.Log.Infow("shutting down", "grace", ShutdownGrace)
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

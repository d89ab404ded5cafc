// cmd/conductor/main.go
//
// conductor – process entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → CONDUCTOR_* env
//     → vault: references).
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY; workers write their own pid-suffixed file).
//
//  3. Dispatch on the sub-command:
//
//     • (none)      – whatever app.mode says
//     • serve       – HTTP front, single process or clustered
//     • run <url>   – one CLI request, body written to stdout
//
//  4. SIGINT and SIGTERM cancel the root context; servers drain and
//     supervisors stop their workers.
//
// Controllers and hook modules are linked in with blank imports below and
// register themselves in init().
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/bootstrap"
	"github.com/yanizio/conductor/internal/cluster"
	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/logger"

	_ "github.com/yanizio/conductor/controllers/home"   // demo controllers
	_ "github.com/yanizio/conductor/modules/accesslog" // access log hooks
)

// version is stamped at build time with -ldflags "-X main.version=…".
var version = "dev"

var (
	cfg *config.Config
	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "conductor",
	Short:         "Request lifecycle engine for HTTP, WebSocket, and CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err = logger.New(cfg.Paths.Root, logger.Options{
			Level:  cfg.Log.Level,
			Tee:    cfg.Log.Tee || runningInTTY(),
			Worker: cluster.IsWorker(),
		})
		if err != nil {
			return fmt.Errorf("start logger: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return bootstrap.Run(cmd.Context(), cfg, log, version, cmd.OutOrStdout())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve HTTP (and WebSocket when enabled)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return bootstrap.Serve(cmd.Context(), cfg, log, version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Execute one request from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap.RunCLI(cmd.Context(), cfg, log, version, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "conductor:", err)
		os.Exit(1)
	}
}

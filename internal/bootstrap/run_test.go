package bootstrap

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yanizio/conductor/internal/config"
	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
)

func init() {
	controller.Register("home", "report", func(rc *core.Context) (controller.Controller, error) {
		c := &controller.Base{}
		c.HandleSig("dailyAction", "(day)", func(_ context.Context, args []string) error {
			return rc.Echo("report for " + controller.Arg(args, 0))
		})
		return c, nil
	})
}

func TestRunCLIMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.App.Mode = "cli"
	cfg.App.ModeData = "/report/daily?day=2024-01-02"

	var out bytes.Buffer
	err := Run(context.Background(), &cfg, zaptest.NewLogger(t).Sugar(), "test", &out)

	require.NoError(t, err)
	assert.Equal(t, "report for 2024-01-02", out.String())
}

func TestRunCLIFailures(t *testing.T) {
	cfg := config.Defaults()
	log := zaptest.NewLogger(t).Sugar()

	assert.Error(t, RunCLI(context.Background(), &cfg, log, "test", "", &bytes.Buffer{}))
	assert.Error(t, RunCLI(context.Background(), &cfg, log, "test", "/nowhere", &bytes.Buffer{}))
}

func TestNewAppRejectsBadAliasDSN(t *testing.T) {
	cfg := config.Defaults()
	cfg.Routing.AliasDSN = "not a dsn"

	_, cleanup, err := NewApp(context.Background(), &cfg, zaptest.NewLogger(t).Sugar(), "test")
	defer cleanup()
	assert.ErrorContains(t, err, "alias database")
}

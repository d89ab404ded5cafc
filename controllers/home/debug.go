// controllers/home/debug.go
//
// Demo controller that echoes destination, params, and client details.
// Works over every transport; over WebSocket the echo action also logs
// when the peer disconnects mid-request.
package home

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/controller"
	"github.com/yanizio/conductor/internal/core"
)

func init() {
	controller.Register("home", "debug", newDebug)
}

// Debug exposes request internals.  Not for production routing.
type Debug struct {
	controller.Base
	rc *core.Context
}

var _ controller.AfterAction = (*Debug)(nil)

func newDebug(rc *core.Context) (controller.Controller, error) {
	c := &Debug{rc: rc}
	c.Handle("infoAction", nil, c.info)
	c.HandleSig("echoAction", "func(text)", c.echo)
	return c, nil
}

func (c *Debug) info(_ context.Context, _ []string) error {
	c.rc.SetHeader("Content-Type", "application/json")
	return c.rc.Echo(map[string]any{
		"id":          c.rc.ID,
		"transport":   c.rc.Transport,
		"method":      c.rc.Method,
		"path":        c.rc.Path,
		"destination": c.rc.Group + "/" + c.rc.Controller + "/" + c.rc.Action,
		"query":       c.rc.Query,
		"body":        c.rc.Body,
		"host":        c.rc.Host,
		"client":      c.rc.Client,
	})
}

func (c *Debug) echo(_ context.Context, args []string) error {
	c.rc.On(core.EventWebSocketClose, func() {
		zap.S().Infow("peer left during echo", "request_id", c.rc.ID)
	})
	return c.rc.Echo(controller.Arg(args, 0))
}

// After implements controller.AfterAction; it finalises the response so
// the actions above only write.
func (c *Debug) After(_ context.Context, _, _ string) error {
	if c.rc.Transport == core.TransportWebSocket {
		return nil // keep the socket open for the next message
	}
	return c.rc.End()
}

// modules/accesslog/accesslog.go
//
// Hook module that writes one access line per completed request.
//
// app_begin logs the resolved destination at DEBUG; app_end logs the
// access line at INFO.  Requests that fail earlier never reach app_end and
// are logged by the engine's error path instead.
package accesslog

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/hook"
)

func init() {
	hook.Register(hook.AppBegin, begin)
	hook.Register(hook.AppEnd, end)
}

func begin(_ context.Context, rc *core.Context) error {
	zap.S().Debugw("dispatch resolved",
		"request_id", rc.ID,
		"path", rc.Path,
		"destination", rc.Group+"/"+rc.Controller+"/"+rc.Action,
	)
	return nil
}

func end(_ context.Context, rc *core.Context) error {
	zap.S().Infow("access",
		"request_id", rc.ID,
		"transport", rc.Transport,
		"method", rc.Method,
		"path", rc.Path,
		"status", rc.Status(),
		"ip", rc.Client.IP,
		"country", rc.Client.Country,
		"browser", rc.Client.Browser,
		"bot", rc.Client.Bot,
	)
	return nil
}

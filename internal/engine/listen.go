package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/fault"
	"github.com/yanizio/conductor/internal/metrics"
)

// Listen is the single entry point every transport calls.  All effects go
// through rc's sink; the Outcome is informational.
//
// Direct port access (declared host differs from hostname) is refused with
// 403 and no body when http.deny_remote_access_with_port is set.  The
// lifecycle never starts for such requests.
func (a *App) Listen(ctx context.Context, rc *core.Context) fault.Outcome {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues(string(rc.Transport)).Inc()
	defer func() {
		metrics.RequestDuration.WithLabelValues(string(rc.Transport)).
			Observe(time.Since(start).Seconds())
	}()

	rc.SetHeader("X-Powered-By", "conductor-"+a.version)

	if a.http.DenyRemoteAccessWithPort && rc.Host != rc.Hostname {
		metrics.DeniedTotal.Inc()
		a.log.Infow("direct port access denied",
			"host", rc.Host,
			"request_id", rc.ID,
		)
		rc.SetStatus(http.StatusForbidden)
		_ = rc.End()
		return fault.Outcome{}
	}

	if a.cfg.Debug {
		rc.Debug = true
	}

	req := a.NewRequest(rc)
	return fault.Run(ctx, req.lifecycle, req.SendError)
}

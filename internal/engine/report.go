package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yanizio/conductor/internal/fault"
	"github.com/yanizio/conductor/internal/metrics"
)

const fallbackErrorPage = "<!doctype html><title>Error</title><h1>Something went wrong.</h1>\n"

// SendError logs err and, when the request still has a sink, answers with
// the raw error text (debug) or the static error page (production).  The
// fault boundary guarantees one call per failing request.
func (r *Request) SendError(err error) {
	rc := r.rc
	kind := KindOf(err)
	metrics.RequestErrorsTotal.WithLabelValues(kind.String()).Inc()

	message := err.Error()
	var pe *fault.PanicError
	if errors.As(err, &pe) {
		message = fmt.Sprintf("%s\n%s", message, pe.Stack)
	}

	r.app.log.Errorw("request failed",
		"request_id", rc.ID,
		"transport", rc.Transport,
		"destination", rc.Group+"/"+rc.Controller+"/"+rc.Action,
		"kind", kind.String(),
		"err", message,
	)

	if !rc.Writable() {
		return
	}

	if rc.Debug {
		_, _ = io.WriteString(rc, message)
		_ = rc.End()
		return
	}

	rc.SetHeader("Content-Type", "text/html; charset="+r.app.cfg.Encoding)
	if err := r.streamErrorPage(); err != nil {
		r.app.log.Warnw("error page unavailable",
			"path", r.app.cfg.ErrorTplPath,
			"err", err,
		)
		_, _ = io.WriteString(rc, fallbackErrorPage)
	}
	_ = rc.End()
}

// streamErrorPage copies the configured error page into the sink.
func (r *Request) streamErrorPage() error {
	if r.app.cfg.ErrorTplPath == "" {
		return errors.New("error_tpl_path not configured")
	}
	f, err := os.Open(r.app.cfg.ErrorTplPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(r.rc, f)
	return err
}

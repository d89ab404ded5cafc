package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/engine"
	"github.com/yanizio/conductor/internal/fault"
)

// RunCLI executes one request described by target, a URL path with an
// optional query (“/home/report/daily?day=2024-01-02”), writing the
// response body to out.  Headers and status are dropped.
func RunCLI(ctx context.Context, app *engine.App, target string, out io.Writer) fault.Outcome {
	u, err := url.Parse(target)
	if err != nil {
		return fault.Outcome{Err: fmt.Errorf("cli target %q: %w", target, err)}
	}

	rc := core.New(core.TransportCLI, &writerSink{w: out})
	rc.Method = "CLI"
	rc.Path = u.Path
	rc.Query = firstValues(u.Query())

	res := app.Listen(ctx, rc)
	_ = rc.End()
	return res
}

type writerSink struct{ w io.Writer }

func (s *writerSink) SetHeader(string, string)    {}
func (s *writerSink) SetStatus(int)               {}
func (s *writerSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *writerSink) End() error                  { return nil }

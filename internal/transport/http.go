// internal/transport/http.go
//
// HTTP adapter.
//
// Context
// -------
// Turns one *http.Request into a core.Context and hands it to the engine.
// Query and body values are flattened to their first value.  JSON bodies
// must be objects; nested values are re-encoded as JSON text so the
// binder still sees a string.
//
// The sink defers WriteHeader until the first body byte or End, so a
// status set by an action (or the 403 short-circuit) is never lost.
//
// The engine runs on a context detached from the client connection, so a
// disconnect never stops a request halfway.  Once ServeHTTP returns the
// sink refuses further writes; late failures from fault.Go are logged by
// the engine and go nowhere.
//
// Notes
// -----
// • Body parsing failures are logged and the body is left empty; binding
//   degrades to "" rather than failing the request.
// • Oxford commas, two spaces after periods.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/engine"
	"github.com/yanizio/conductor/internal/requestinfo"
)

const maxMemory = 32 << 20 // multipart in-memory limit

// ErrHandlerReturned is returned by writes that arrive after ServeHTTP.
var ErrHandlerReturned = errors.New("http: handler already returned")

// HTTP is an http.Handler in front of an engine.App.
type HTTP struct {
	app *engine.App
}

// NewHTTP returns the HTTP adapter.
func NewHTTP(app *engine.App) *HTTP { return &HTTP{app: app} }

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sink := &httpSink{w: w}
	rc := FromRequest(r, sink)
	h.app.Listen(context.WithoutCancel(r.Context()), rc)
	sink.close()
}

// FromRequest builds a core.Context for r.  Exported for adapters that
// front the engine with their own server.
func FromRequest(r *http.Request, sink core.Sink) *core.Context {
	rc := core.New(core.TransportHTTP, sink)
	rc.Method = r.Method
	rc.Path = r.URL.Path
	rc.Query = firstValues(r.URL.Query())
	rc.Body = parseBody(r)
	rc.Host = r.Host
	rc.Hostname = Hostname(r.Host)
	rc.Client = requestinfo.FromContext(r.Context()).Client()
	return rc
}

// Hostname strips any “:port” suffix, IPv6 brackets included.
func Hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func parseBody(r *http.Request) map[string]string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return map[string]string{}
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mt == "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			zap.S().Debugw("json body ignored", "err", err, "path", r.URL.Path)
			return map[string]string{}
		}
		return flatten(raw)
	case mt == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			zap.S().Debugw("multipart body ignored", "err", err, "path", r.URL.Path)
			return map[string]string{}
		}
	default:
		if err := r.ParseForm(); err != nil {
			zap.S().Debugw("form body ignored", "err", err, "path", r.URL.Path)
			return map[string]string{}
		}
	}
	return firstValues(r.PostForm)
}

func firstValues(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// flatten stringifies decoded JSON values.
func flatten(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case bool, float64:
			out[k] = fmt.Sprint(t)
		default:
			b, _ := json.Marshal(t)
			out[k] = string(b)
		}
	}
	return out
}

/*──────────────────────────── sink ────────────────────────────────────────*/

type httpSink struct {
	w http.ResponseWriter

	mu     sync.Mutex
	status int
	wrote  bool
	closed bool
}

func (s *httpSink) SetHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.wrote && !s.closed {
		s.w.Header().Set(key, value)
	}
}

func (s *httpSink) SetStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

func (s *httpSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrHandlerReturned
	}
	s.flush()
	return s.w.Write(p)
}

func (s *httpSink) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrHandlerReturned
	}
	s.flush()
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// close sends any pending status and detaches the ResponseWriter.
func (s *httpSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	s.closed = true
}

// flush sends the status line once.  Callers hold mu.
func (s *httpSink) flush() {
	if s.wrote {
		return
	}
	s.wrote = true
	if s.status != 0 {
		s.w.WriteHeader(s.status)
	}
}

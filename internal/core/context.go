// internal/core/context.go
//
// Central per-request context.
//
// Context
// -------
// Every transport adapter builds a *core.Context for each unit of work
// (one HTTP request, one WebSocket message, one CLI invocation) and hands
// it to the engine.  It bundles:
//
//   - Transport   – http, websocket, or cli.
//   - Destination – group, controller, and action names.  Fallback
//     resolution may rewrite them.
//   - Params      – query and body values, flattened to strings.
//   - Host        – declared host (may carry a port) and bare hostname.
//   - Sink        – where the response goes.  May be nil.
//
// Finalisation rules
// ------------------
// End reaches the underlying sink at most once.  Writes after End fail
// with ErrEnded.  Events emitted after End are dropped, which is how a
// closed socket stops notifying a finished request.
//
// Notes
// -----
// • A Context is owned by one goroutine except for Emit, which the
//   WebSocket reader may call concurrently; the mutex covers that path.
// • Oxford commas, two spaces after periods.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Transport identifies the adapter that produced a Context.
type Transport string

const (
	TransportHTTP      Transport = "http"
	TransportWebSocket Transport = "websocket"
	TransportCLI       Transport = "cli"
)

// EventWebSocketClose is emitted into the latest live Context of a socket
// when the peer disconnects.
const EventWebSocketClose = "websocket.close"

// ErrEnded is returned by writes after the response was finalised.
var ErrEnded = errors.New("core: response already ended")

// ErrNoSink is returned by writes on a Context without a sink.
var ErrNoSink = errors.New("core: no response sink")

// Sink is the transport-side response surface.
type Sink interface {
	SetHeader(key, value string)
	SetStatus(code int)
	Write(p []byte) (int, error)
	End() error
}

// Client is best-effort peer metadata.  Only the HTTP and WebSocket
// adapters fill it, from the request enrichment middleware.
type Client struct {
	IP      string
	Country string
	City    string
	Browser string
	Device  string
	Lang    string
	Bot     bool
}

// Context is one inbound unit of work.
type Context struct {
	ID        string
	Transport Transport
	Method    string
	Path      string

	Group      string
	Controller string
	Action     string

	Query map[string]string
	Body  map[string]string

	Host     string // as declared, may include “:port”
	Hostname string // Host without port
	Debug    bool

	Client Client

	sink Sink

	mu     sync.Mutex
	ended  bool
	status int
	events map[string][]func()
}

// New returns a Context bound to sink.  sink may be nil.
func New(t Transport, sink Sink) *Context {
	return &Context{
		ID:        uuid.NewString(),
		Transport: t,
		Method:    "GET",
		Query:     map[string]string{},
		Body:      map[string]string{},
		sink:      sink,
		events:    map[string][]func(){},
	}
}

/*──────────────────────────── response surface ────────────────────────────*/

// Writable reports whether a sink exists and has not been ended.
func (c *Context) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink != nil && !c.ended
}

// Ended reports whether End already ran.
func (c *Context) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// Status returns the last status set through SetStatus, or 0.
func (c *Context) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetHeader is a no-op without a writable sink.
func (c *Context) SetHeader(key, value string) {
	if c.Writable() {
		c.sink.SetHeader(key, value)
	}
}

// SetStatus is a no-op without a writable sink.
func (c *Context) SetStatus(code int) {
	c.mu.Lock()
	c.status = code
	c.mu.Unlock()
	if c.Writable() {
		c.sink.SetStatus(code)
	}
}

// Write implements io.Writer over the sink.
func (c *Context) Write(p []byte) (int, error) {
	c.mu.Lock()
	sink, ended := c.sink, c.ended
	c.mu.Unlock()
	switch {
	case sink == nil:
		return 0, ErrNoSink
	case ended:
		return 0, ErrEnded
	}
	return sink.Write(p)
}

// Echo writes v: strings and byte slices verbatim, everything else as JSON.
func (c *Context) Echo(v any) error {
	var b []byte
	switch t := v.(type) {
	case string:
		b = []byte(t)
	case []byte:
		b = t
	case fmt.Stringer:
		b = []byte(t.String())
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return err
		}
	}
	_, err := c.Write(b)
	return err
}

// End finalises the response.  Only the first call reaches the sink.
func (c *Context) End() error {
	c.mu.Lock()
	if c.ended || c.sink == nil {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	sink := c.sink
	c.mu.Unlock()
	return sink.End()
}

// Detach drops the sink, e.g. after the peer went away.  Later writes
// fail with ErrNoSink and error reporting only logs.
func (c *Context) Detach() {
	c.mu.Lock()
	c.sink = nil
	c.mu.Unlock()
}

/*──────────────────────────── event surface ───────────────────────────────*/

// On registers fn for event.
func (c *Context) On(event string, fn func()) {
	c.mu.Lock()
	c.events[event] = append(c.events[event], fn)
	c.mu.Unlock()
}

// Emit runs the handlers for event in registration order.  It reports
// false when the Context has already ended.
func (c *Context) Emit(event string) bool {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return false
	}
	fns := append([]func(){}, c.events[event]...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return true
}

/*──────────────────────────── params ──────────────────────────────────────*/

// Param returns the body value for key, else the query value, else "".
func (c *Context) Param(key string) string {
	if v := c.Body[key]; v != "" {
		return v
	}
	return c.Query[key]
}

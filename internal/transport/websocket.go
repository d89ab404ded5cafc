// internal/transport/websocket.go
//
// WebSocket adapter (gorilla/websocket).
//
// Context
// -------
// After the upgrade, every text frame is one JSON payload:
//
//	{"url": "/home/chat/send?room=1", "method": "POST", "text": "hi"}
//
// `url` supplies path and query, `method` the method; every other field
// becomes a body value.  Each message runs as an independent request on
// its own goroutine, sharing the socket as its sink:
//
//   • Write sends one text frame.  Valid JSON goes out as is, anything
//     else is encoded as a JSON string.
//   • End closes the socket, once, for every request on it.
//
// When the peer disconnects, `websocket.close` is emitted into the most
// recent request if it has not ended yet.
//
// Notes
// -----
// • gorilla allows one concurrent writer; session.writeMu serialises
//   frames from concurrent requests.
// • Requests outlive the upgrade handler's context cancellation on
//   purpose: there is no mid-flight cancellation.
// • Oxford commas, two spaces after periods.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/engine"
	"github.com/yanizio/conductor/internal/metrics"
	"github.com/yanizio/conductor/internal/requestinfo"
)

// ErrSocketClosed is returned by writes after the socket closed.
var ErrSocketClosed = errors.New("websocket closed")

const closeWait = time.Second

// WebSocket upgrades requests and feeds messages to the engine.
type WebSocket struct {
	app      *engine.App
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewWebSocket returns the adapter.  Origin checks are left to the front
// proxy, matching the HTTP adapter.
func NewWebSocket(app *engine.App, log *zap.SugaredLogger) *WebSocket {
	if log == nil {
		log = zap.S()
	}
	return &WebSocket{
		app: app,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// IsUpgrade reports whether r asks for a WebSocket.
func IsUpgrade(r *http.Request) bool { return websocket.IsWebSocketUpgrade(r) }

func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Debugw("websocket upgrade failed", "err", err)
		return // Upgrade already replied
	}
	s := &session{
		conn:   conn,
		host:   Hostname(r.Host),
		client: requestinfo.FromContext(r.Context()).Client(),
		log:    ws.log,
	}
	s.serve(context.WithoutCancel(r.Context()), ws.app)
}

/*──────────────────────────── session ─────────────────────────────────────*/

type session struct {
	conn   *websocket.Conn
	host   string
	client core.Client
	log    *zap.SugaredLogger

	writeMu sync.Mutex
	closed  bool

	latestMu sync.Mutex
	latest   *core.Context
}

func (s *session) serve(ctx context.Context, app *engine.App) {
	metrics.WebSocketSessions.Inc()
	defer metrics.WebSocketSessions.Dec()

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		rc, err := s.newContext(data)
		if err != nil {
			s.log.Debugw("websocket payload rejected", "err", err)
			continue
		}
		s.latestMu.Lock()
		s.latest = rc
		s.latestMu.Unlock()
		go app.Listen(ctx, rc)
	}

	s.close()
	s.latestMu.Lock()
	last := s.latest
	s.latestMu.Unlock()
	if last != nil {
		last.Emit(core.EventWebSocketClose)
	}
}

// newContext decodes one payload into a request bound to this socket.
func (s *session) newContext(data []byte) (*core.Context, error) {
	payload := map[string]any{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	rc := core.New(core.TransportWebSocket, &socketSink{s: s})
	rc.Host = s.host
	rc.Hostname = s.host
	rc.Client = s.client

	if raw, _ := payload["url"].(string); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("payload url: %w", err)
		}
		rc.Path = u.Path
		rc.Query = firstValues(u.Query())
	}
	if m, _ := payload["method"].(string); m != "" {
		rc.Method = strings.ToUpper(m)
	}
	delete(payload, "url")
	delete(payload, "method")
	rc.Body = flatten(payload)
	return rc, nil
}

func (s *session) send(p []byte) error {
	msg := p
	if !json.Valid(p) {
		var err error
		if msg, err = json.Marshal(string(p)); err != nil {
			return err
		}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *session) close() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	_ = s.conn.Close()
}

/*──────────────────────────── sink ────────────────────────────────────────*/

// socketSink has no headers or status; frames carry only payload.
type socketSink struct{ s *session }

func (k *socketSink) SetHeader(string, string) {}
func (k *socketSink) SetStatus(int)            {}

func (k *socketSink) Write(p []byte) (int, error) {
	if err := k.s.send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (k *socketSink) End() error {
	k.s.close()
	return nil
}

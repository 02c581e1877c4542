package houm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler receives the payload of a named inbound event. Lifecycle
// events (connect, disconnect, close, error) carry a nil payload.
type Handler func(payload json.RawMessage)

// EventSocket is the bidirectional event-stream contract the controller
// depends on. Satisfied by *Socket; mocked in tests.
type EventSocket interface {
	// Connect establishes the connection and starts the receive loop.
	// It returns once the connection attempt has completed; the
	// receive loop runs concurrently until Disconnect.
	Connect(ctx context.Context) error

	// On registers exactly one handler per event name. Registering
	// again replaces the previous handler.
	On(event string, handler Handler)

	// Emit sends a named event with a JSON payload. Fire-and-forget:
	// no acknowledgement is tracked.
	Emit(event string, payload any) error

	// Disconnect closes the connection and blocks until the receive
	// loop has fully terminated.
	Disconnect()
}

// frame is the wire format: one JSON object per named event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Socket is a websocket-backed event-stream client speaking named-event
// JSON frames against the Houm service.
//
// Thread Safety: all methods are safe for concurrent use. Emit may be
// called from any goroutine; handlers run on the receive loop goroutine.
type Socket struct {
	serviceURL string
	connID     string // per-connection uuid for log correlation

	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex

	handlers  map[string]Handler
	handlerMu sync.RWMutex

	// closing suppresses terminal event dispatch for locally initiated
	// disconnects, so shutdown does not masquerade as connection loss.
	closing atomic.Bool

	recvDone chan struct{}

	logger Logger
}

// NewSocket creates a socket bound to the service base address.
// The connection is not opened until Connect.
func NewSocket(serviceURL string, logger Logger) *Socket {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Socket{
		serviceURL: serviceURL,
		handlers:   make(map[string]Handler),
		logger:     logger,
	}
}

// On registers the handler for a named event, replacing any previous one.
func (s *Socket) On(event string, handler Handler) {
	s.handlerMu.Lock()
	s.handlers[event] = handler
	s.handlerMu.Unlock()
}

// Connect dials the service, fires the connect handler, and starts the
// receive loop. Returns ErrAlreadyConnected if the socket is open.
func (s *Socket) Connect(ctx context.Context) error {
	s.connMu.Lock()

	if s.conn != nil {
		s.connMu.Unlock()
		return ErrAlreadyConnected
	}

	wsURL, err := websocketURL(s.serviceURL)
	if err != nil {
		s.connMu.Unlock()
		return fmt.Errorf("invalid service URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		s.connMu.Unlock()
		return fmt.Errorf("dial event stream: %w", err)
	}

	s.conn = conn
	s.connID = uuid.NewString()
	s.closing.Store(false)
	s.recvDone = make(chan struct{})
	done := s.recvDone

	// Release the lock before dispatching so the connect handler can
	// Emit on this socket.
	s.connMu.Unlock()

	s.logger.Info("event stream connected", "url", wsURL, "conn_id", s.connID)

	go s.readLoop(conn, done)

	s.dispatch(EventConnect, nil)

	return nil
}

// Emit sends a named event. No acknowledgement is awaited.
func (s *Socket) Emit(event string, payload any) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.WriteJSON(frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Disconnect closes the connection and joins the receive loop.
// Safe to call on a socket that never connected, and idempotent.
func (s *Socket) Disconnect() {
	s.connMu.Lock()
	conn := s.conn
	done := s.recvDone
	s.conn = nil
	s.connMu.Unlock()

	if conn == nil {
		return
	}

	s.closing.Store(true)

	// Best-effort close handshake before tearing down the transport.
	s.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	_ = conn.Close()

	// Join semantics: no handler runs after Disconnect returns.
	<-done

	s.logger.Debug("event stream disconnected", "conn_id", s.connID)
}

// readLoop reads frames until the connection dies, dispatching each to
// its registered handler. On connection loss it dispatches exactly one
// terminal event (disconnect, close or error) unless the loss was
// locally initiated.
func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if s.closing.Load() {
				return
			}

			event := EventError
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				event = EventClose
			} else if websocket.IsUnexpectedCloseError(err) {
				event = EventDisconnect
			}

			s.logger.Warn("event stream lost",
				"conn_id", s.connID,
				"event", event,
				"error", err,
			)
			s.dispatch(event, nil)
			return
		}

		s.dispatch(f.Event, f.Data)
	}
}

// dispatch invokes the handler registered for the event, if any.
func (s *Socket) dispatch(event string, payload json.RawMessage) {
	s.handlerMu.RLock()
	handler := s.handlers[event]
	s.handlerMu.RUnlock()

	if handler == nil {
		s.logger.Debug("unhandled event", "event", event, "conn_id", s.connID)
		return
	}
	handler(payload)
}

// websocketURL converts the HTTP service base address to its websocket
// equivalent (http→ws, https→wss).
func websocketURL(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	return u.String(), nil
}

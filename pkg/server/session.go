package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emucore/debugwire/pkg/protocol"
)

// Session is one active debugger connection and its full handling state:
// the transport, the handler map built by subscriber init, per-subscriber
// state, the per-session broadcaster set, and the adaptive-polling
// counter. All of it is owned by the session's own goroutine; the only
// shared state a session touches is behind the Coordinator.
type Session struct {
	// ID identifies the session in logs.
	ID string

	// CreatedAt is the accept time.
	CreatedAt time.Time

	transport Transport
	coord     *Coordinator
	registry  *Registry
	config    *SessionConfig
	logger    *slog.Logger
	metrics   *Metrics

	// handlers is built once during subscriber init and read-only during
	// dispatch. states is parallel to the registry's subscriber list.
	handlers HandlerMap
	states   []any

	broadcasters []Broadcaster

	// highActivity is the remaining tick count of the current
	// high-activity window. Session-goroutine local.
	highActivity int

	torndown  atomic.Bool
	eventsIn  atomic.Uint64
	eventsOut atomic.Uint64
}

// newSessionID generates a random session identifier for logging.
func newSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// NewSession creates a session over an already-established transport and
// counts it as live. The caller must follow up with Run; the session is
// not torn down (and the live count not released) until Run returns.
func NewSession(t Transport, coord *Coordinator, registry *Registry, cfg *SessionConfig, logger *slog.Logger, metrics *Metrics) *Session {
	if cfg == nil {
		cfg = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:        newSessionID(),
		CreatedAt: time.Now(),
		transport: t,
		coord:     coord,
		registry:  registry,
		config:    cfg,
		metrics:   metrics,
		handlers:  make(HandlerMap),
	}
	s.logger = logger.With("session", s.ID)

	coord.addSession()
	metrics.sessionOpened()
	return s
}

// Run executes the session's cooperative loop until the connection ends
// or a global stop is requested: receive at most one message with the
// current poll timeout, dispatch it, then fan out to every broadcaster.
// Teardown always runs exactly once before Run returns.
func (s *Session) Run() {
	defer s.teardown()

	s.initSubscribers()
	s.broadcasters = s.registry.newBroadcasters()

	s.logger.Info("debugger connected")

	for {
		interval := s.pollInterval()
		// The window countdown runs once per tick whether or not a
		// message arrives.
		if s.highActivity > 0 {
			s.highActivity--
		}

		data, err := s.transport.Receive(interval)
		switch {
		case err == nil:
			s.metrics.received(len(data))
			s.dispatch(data)
		case errors.Is(err, ErrReceiveTimeout):
			// Quiet tick; broadcasters still get their turn.
		case errors.Is(err, ErrBinaryMessage):
			s.metrics.protocolError("binary")
			s.Send(protocol.ErrorEvent("Bad message", protocol.LevelError))
		default:
			s.logger.Info("debugger disconnected", "reason", err)
			return
		}

		stop := false
		s.coord.guardDo(func() {
			for _, b := range s.broadcasters {
				b.Broadcast(s)
			}
			stop = s.coord.stopPending()
		})
		s.metrics.broadcastTick()

		if stop {
			s.transport.Close(websocket.CloseGoingAway)
			s.logger.Info("debugger closed by stop request")
			return
		}
	}
}

// Close nudges the session to exit its loop by tearing down the
// transport. Teardown itself still happens on the session goroutine, so
// concurrent Close calls and connection loss cannot race the shutdown
// sequence.
func (s *Session) Close() {
	s.transport.Close(websocket.CloseNormalClosure)
}

// pollInterval picks the receive timeout for the next tick.
func (s *Session) pollInterval() time.Duration {
	if s.highActivity > 0 {
		return s.config.ActivePollInterval
	}
	return s.config.IdlePollInterval
}

// initSubscribers runs every registered subscriber's Init in order, each
// under the lifecycle guard, collecting per-session state.
func (s *Session) initSubscribers() {
	s.states = make([]any, 0, len(s.registry.subscribers))
	for _, sub := range s.registry.subscribers {
		var state any
		s.coord.guardDo(func() {
			state = sub.Init(s.handlers)
		})
		s.states = append(s.states, state)
	}
}

// dispatch handles one inbound text message: decode, extract the event
// name, look up the handler, and invoke it under the lifecycle guard.
func (s *Session) dispatch(data []byte) {
	s.eventsIn.Add(1)

	msg, err := protocol.ParseMessage(data)
	if errors.Is(err, protocol.ErrInvalidJSON) {
		s.metrics.protocolError("invalid_json")
		s.Send(protocol.ErrorEvent("Bad message: invalid JSON", protocol.LevelError))
		return
	}

	event := msg.Event()
	if event == "" {
		s.metrics.protocolError("no_event")
		s.Send(protocol.ErrorEventTicket("Bad message: no event property", protocol.LevelError, msg.Ticket()))
		return
	}

	req := newRequest(event, s, msg)
	h, ok := s.handlers[event]
	if !ok {
		// No shared state is touched for an unknown event, so no guard.
		s.metrics.event("unknown")
		req.Fail("Bad message: unknown event")
		return
	}

	s.coord.guardDo(func() {
		s.invoke(h, req)
	})
	s.metrics.event("handled")

	if req.pending() {
		// Poll more frequently for a while in case this triggers something.
		s.highActivity = s.config.HighActivityTicks
		s.metrics.deferred()
	}
}

// invoke runs a handler with panic containment. Handlers are expected to
// be defensive and report their own failures; a panic that does escape is
// answered on the handler's behalf and the session stays open.
func (s *Session) invoke(h HandlerFunc, req *Request) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler fault",
				"event", req.Event,
				"panic", r,
				"stack", string(debug.Stack()))
			s.metrics.handlerPanic()
			if !req.responded {
				req.Fail(fmt.Sprintf("Internal error handling %q", req.Event))
			}
		}
	}()
	h(req)
}

// teardown runs the close sequence exactly once: subscriber shutdown in
// init order under the lifecycle guard, transport close, live-count
// decrement. It tolerates being reached through either the connection
// loss path or the global stop path, including both at once.
func (s *Session) teardown() {
	if !s.torndown.CompareAndSwap(false, true) {
		return
	}

	s.coord.guardDo(func() {
		for i, state := range s.states {
			sub := s.registry.subscribers[i]
			if fin, ok := sub.(Finalizer); ok {
				fin.Shutdown(state)
			} else if state != nil {
				panic(fmt.Sprintf("server: subscriber %T returned state but has no Shutdown", sub))
			}
		}
	})

	s.transport.Close(websocket.CloseNormalClosure)
	s.metrics.sessionClosed()
	s.coord.removeSession()
	s.logger.Info("session closed",
		"events_in", s.eventsIn.Load(),
		"events_out", s.eventsOut.Load(),
		"lifetime", time.Since(s.CreatedAt))
}

// Send writes one outbound message. Write failures are logged, not
// returned to broadcasters; the loop will notice the dead connection at
// its next receive.
func (s *Session) Send(data []byte) {
	if err := s.transport.SendText(data); err != nil {
		if !errors.Is(err, ErrConnectionClosed) {
			s.logger.Error("send failed", "error", err)
		}
		return
	}
	s.eventsOut.Add(1)
	s.metrics.sent(len(data))
}

// SendEvent encodes and sends an outbound event. This is the usual path
// for broadcasters. After teardown it reports ErrSessionClosed.
func (s *Session) SendEvent(name string, fields map[string]any) error {
	if s.torndown.Load() {
		return NewSessionError(s.ID, "send event", ErrSessionClosed)
	}
	out, err := protocol.EncodeEvent(name, fields)
	if err != nil {
		return NewSessionError(s.ID, "send event", err)
	}
	s.Send(out)
	return nil
}

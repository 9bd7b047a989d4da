package server

import "fmt"

// HandlerFunc handles one decoded client request. Handlers run under the
// lifecycle guard and must return promptly; a handler that blocks stalls
// host lifecycle transitions process-wide.
type HandlerFunc func(*Request)

// HandlerMap maps event names to handlers for one session. It is built
// once during subscriber init and read-only for the rest of the session.
type HandlerMap map[string]HandlerFunc

// Bind registers a handler for an event name. Event names must be unique
// across all subscribers of a session; a duplicate is a registry
// misconfiguration and panics at first use rather than being silently
// resolved.
func (m HandlerMap) Bind(event string, h HandlerFunc) {
	if _, dup := m[event]; dup {
		panic(fmt.Sprintf("server: duplicate handler for event %q", event))
	}
	m[event] = h
}

// Subscriber is a pluggable module contributing event handlers. Init is
// called once per session, under the lifecycle guard, in registration
// order; it binds zero or more handlers and returns opaque per-session
// state. A subscriber returning non-nil state must also implement
// Finalizer - that is verified at session close.
type Subscriber interface {
	Init(handlers HandlerMap) any
}

// Finalizer is the optional shutdown capability of a Subscriber. Shutdown
// is called once per session at close, under the lifecycle guard, in the
// same order Init ran, and receives the state Init returned.
type Finalizer interface {
	Shutdown(state any)
}

// Broadcaster emits unsolicited, tick-driven notifications. Broadcast is
// invoked once per loop tick under the lifecycle guard, whether or not
// any client request arrived that tick. It must decide on its own whether
// it has anything to say and must never block waiting for external
// events - the tick cadence is the only progress guarantee it gets.
type Broadcaster interface {
	Broadcast(s *Session)
}

// BroadcasterFactory builds one broadcaster instance per session.
// Broadcasters are stateful (last-seen cursors and the like), so sessions
// cannot share them.
type BroadcasterFactory func() Broadcaster

// Registry is the process-wide list of subscribers and broadcaster
// factories. It is assembled at configuration time and must not change
// once the first session is accepted.
type Registry struct {
	subscribers  []Subscriber
	broadcasters []BroadcasterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends a subscriber. Order is significant: Init runs in this
// order, and so does Shutdown.
func (r *Registry) Subscribe(sub Subscriber) *Registry {
	r.subscribers = append(r.subscribers, sub)
	return r
}

// Broadcast appends a broadcaster factory. Broadcast fan-out follows this
// order on every tick.
func (r *Registry) Broadcast(f BroadcasterFactory) *Registry {
	r.broadcasters = append(r.broadcasters, f)
	return r
}

// newBroadcasters instantiates the per-session broadcaster set.
func (r *Registry) newBroadcasters() []Broadcaster {
	out := make([]Broadcaster, 0, len(r.broadcasters))
	for _, f := range r.broadcasters {
		out = append(out, f())
	}
	return out
}

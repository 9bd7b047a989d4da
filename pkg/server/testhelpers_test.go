package server

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// testLogger returns a logger that discards everything.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMsg is one scripted inbound message.
type fakeMsg struct {
	binary bool
	data   []byte
}

// fakeTransport is a scriptable in-memory Transport. Receive pops queued
// messages, then reports quiet ticks until the script closes it or the
// receive budget runs out.
type fakeTransport struct {
	mu          sync.Mutex
	queue       []fakeMsg
	sent        [][]byte
	timeouts    []time.Duration
	closeCodes  []int
	closed      bool
	maxReceives int // 0 = unlimited
	receives    int
}

func newFakeTransport(msgs ...fakeMsg) *fakeTransport {
	return &fakeTransport{queue: msgs}
}

func text(s string) fakeMsg   { return fakeMsg{data: []byte(s)} }
func binary(b []byte) fakeMsg { return fakeMsg{binary: true, data: b} }

func (t *fakeTransport) Receive(timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	t.receives++
	t.timeouts = append(t.timeouts, timeout)

	if t.closed {
		t.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	if len(t.queue) > 0 {
		m := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()
		if m.binary {
			return nil, ErrBinaryMessage
		}
		return m.data, nil
	}
	if t.maxReceives > 0 && t.receives >= t.maxReceives {
		t.closed = true
		t.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	t.mu.Unlock()

	// Keep test loops fast regardless of the configured poll interval.
	time.Sleep(100 * time.Microsecond)
	return nil, ErrReceiveTimeout
}

func (t *fakeTransport) SendText(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrConnectionClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.sent = append(t.sent, cp)
	return nil
}

func (t *fakeTransport) Close(code int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCodes = append(t.closeCodes, code)
	t.closed = true
	return nil
}

func (t *fakeTransport) sentMessages() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *fakeTransport) recordedTimeouts() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.timeouts))
	copy(out, t.timeouts)
	return out
}

// countingGuard is an instrumented lifecycle guard.
type countingGuard struct {
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (g *countingGuard) Lock() {
	g.mu.Lock()
	g.locks++
}

func (g *countingGuard) Unlock() {
	g.unlocks++
	g.mu.Unlock()
}

func (g *countingGuard) counts() (locks, unlocks int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locks, g.unlocks
}

// fakeHost records lifecycle listener registrations.
type fakeHost struct {
	mu        sync.Mutex
	listeners []func(Stage)
}

func (h *fakeHost) ListenLifecycle(fn func(Stage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *fakeHost) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// recordingSubscriber binds a set of handlers and records its lifecycle.
type recordingSubscriber struct {
	name     string
	handlers map[string]HandlerFunc
	state    any
	noState  bool

	mu        sync.Mutex
	inits     int
	shutdowns []any
	log       *[]string // shared init/shutdown order log, optional
}

func (r *recordingSubscriber) Init(m HandlerMap) any {
	r.mu.Lock()
	r.inits++
	if r.log != nil {
		*r.log = append(*r.log, "init:"+r.name)
	}
	r.mu.Unlock()
	for ev, h := range r.handlers {
		m.Bind(ev, h)
	}
	if r.noState {
		return nil
	}
	return r.state
}

func (r *recordingSubscriber) Shutdown(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns = append(r.shutdowns, state)
	if r.log != nil {
		*r.log = append(*r.log, "shutdown:"+r.name)
	}
}

// statelessSubscriber has no shutdown capability at all.
type statelessSubscriber struct {
	handlers map[string]HandlerFunc
	state    any // returned as-is; non-nil is a contract violation
}

func (s *statelessSubscriber) Init(m HandlerMap) any {
	for ev, h := range s.handlers {
		m.Bind(ev, h)
	}
	return s.state
}

// tickBroadcaster counts its Broadcast invocations.
type tickBroadcaster struct {
	mu    sync.Mutex
	ticks int
	fn    func(*Session)
}

func (b *tickBroadcaster) Broadcast(s *Session) {
	b.mu.Lock()
	b.ticks++
	b.mu.Unlock()
	if b.fn != nil {
		b.fn(s)
	}
}

func (b *tickBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

package servertest

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/emucore/debugwire/pkg/server"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Pipe is an in-memory server.Transport with a client end.
type Pipe struct {
	in  chan pipeMsg
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}

	// receiving is closed when the session loop first calls Receive,
	// which happens only after subscriber init and broadcaster creation.
	recvOnce  sync.Once
	receiving chan struct{}

	mu    sync.Mutex
	codes []int
}

type pipeMsg struct {
	binary bool
	data   []byte
}

// NewPipe creates an in-memory transport.
func NewPipe() *Pipe {
	return &Pipe{
		in:        make(chan pipeMsg, 64),
		out:       make(chan []byte, 64),
		closed:    make(chan struct{}),
		receiving: make(chan struct{}),
	}
}

// Receive implements server.Transport.
func (p *Pipe) Receive(timeout time.Duration) ([]byte, error) {
	p.recvOnce.Do(func() { close(p.receiving) })
	select {
	case <-p.closed:
		return nil, server.ErrConnectionClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-p.in:
		if m.binary {
			return nil, server.ErrBinaryMessage
		}
		return m.data, nil
	case <-p.closed:
		return nil, server.ErrConnectionClosed
	case <-timer.C:
		return nil, server.ErrReceiveTimeout
	}
}

// SendText implements server.Transport.
func (p *Pipe) SendText(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case <-p.closed:
		return server.ErrConnectionClosed
	case p.out <- cp:
		return nil
	case <-time.After(time.Second):
		return server.ErrWriteTimeout
	}
}

// Close implements server.Transport. Safe to call more than once.
func (p *Pipe) Close(code int) error {
	p.mu.Lock()
	p.codes = append(p.codes, code)
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// CloseCodes returns the close status codes recorded so far.
func (p *Pipe) CloseCodes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.codes))
	copy(out, p.codes)
	return out
}

// ClientSend queues a text message as if the debugger client sent it.
func (p *Pipe) ClientSend(raw string) {
	p.in <- pipeMsg{data: []byte(raw)}
}

// ClientSendBinary queues a binary frame.
func (p *Pipe) ClientSendBinary(data []byte) {
	p.in <- pipeMsg{binary: true, data: data}
}

// ClientRecv waits for the next outbound message.
func (p *Pipe) ClientRecv(timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-p.out:
		return msg, true
	case <-timer.C:
		return nil, false
	}
}

// Harness runs one real session loop over a Pipe.
type Harness struct {
	Pipe        *Pipe
	Coordinator *server.Coordinator

	done chan struct{}
}

// New starts a session for the registry with fast test polling. The
// session loop runs until Close (or a coordinator stop) ends it.
func New(t *testing.T, reg *server.Registry) *Harness {
	t.Helper()
	return NewWithConfig(t, reg, &server.SessionConfig{
		IdlePollInterval:   2 * time.Millisecond,
		ActivePollInterval: time.Millisecond,
		HighActivityTicks:  50,
		WriteTimeout:       time.Second,
		MaxMessageSize:     1 << 20,
		ReceiveBuffer:      16,
	})
}

// NewWithConfig starts a session with an explicit session config.
func NewWithConfig(t *testing.T, reg *server.Registry, cfg *server.SessionConfig) *Harness {
	t.Helper()
	h := &Harness{
		Pipe:        NewPipe(),
		Coordinator: server.NewCoordinator(discardLogger()),
		done:        make(chan struct{}),
	}
	sess := server.NewSession(h.Pipe, h.Coordinator, reg, cfg, discardLogger(), nil)
	go func() {
		sess.Run()
		close(h.done)
	}()
	// Don't return until the loop is live: broadcasters must exist before
	// the test mutates the state they watch.
	select {
	case <-h.Pipe.receiving:
	case <-time.After(5 * time.Second):
		t.Fatal("session loop did not start")
	}
	return h
}

// Send queues a client text message.
func (h *Harness) Send(raw string) {
	h.Pipe.ClientSend(raw)
}

// Expect waits for the next outbound message and fails the test if its
// event name differs. Pass "" to accept any event.
func (h *Harness) Expect(t *testing.T, event string) gjson.Result {
	t.Helper()
	msg, ok := h.Pipe.ClientRecv(5 * time.Second)
	if !ok {
		t.Fatalf("no message from session (waiting for %q)", event)
	}
	root := gjson.ParseBytes(msg)
	if event != "" && root.Get("event").String() != event {
		t.Fatalf("got event %q, want %q: %s", root.Get("event").String(), event, msg)
	}
	return root
}

// Close disconnects the client and waits for the session to tear down.
func (h *Harness) Close() {
	h.Pipe.Close(1000)
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
	}
}

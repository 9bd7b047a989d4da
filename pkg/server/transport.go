package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is the wire connection owned by exactly one session.
//
// Receive waits up to timeout for one inbound message. On a quiet tick it
// returns ErrReceiveTimeout and the session loop simply moves on to
// broadcasting. A binary frame returns ErrBinaryMessage (the session
// answers it with a generic error and stays open). Once the peer is gone
// every call returns an error wrapping ErrConnectionClosed.
type Transport interface {
	Receive(timeout time.Duration) ([]byte, error)
	SendText(data []byte) error
	Close(code int) error
}

// wsTransport adapts a gorilla websocket connection to the Transport
// contract. Gorilla read deadlines poison the connection once they fire,
// so instead of deadline-per-call a pump goroutine reads continuously
// into a buffered channel and Receive selects against a timer.
type wsTransport struct {
	conn *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration

	incoming chan wsInbound
	// done unblocks a pump stuck delivering queued frames once the
	// session has stopped receiving.
	done   chan struct{}
	closed atomic.Bool
}

type wsInbound struct {
	kind int
	data []byte
	err  error
}

func newWSTransport(conn *websocket.Conn, cfg *SessionConfig) *wsTransport {
	conn.SetReadLimit(cfg.MaxMessageSize)
	t := &wsTransport{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		incoming:     make(chan wsInbound, cfg.ReceiveBuffer),
		done:         make(chan struct{}),
	}
	go t.readPump()
	return t
}

// readPump moves frames from the connection into the inbound queue until
// the connection dies, then delivers the terminal error and stops. Every
// send also watches done: after Close nobody drains the queue, and an
// undeliverable frame must not park the pump forever.
func (t *wsTransport) readPump() {
	defer close(t.incoming)
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case t.incoming <- wsInbound{err: err}:
			case <-t.done:
			}
			return
		}
		select {
		case t.incoming <- wsInbound{kind: kind, data: data}:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case in, ok := <-t.incoming:
		if !ok || in.err != nil {
			if in.err != nil && websocket.IsUnexpectedCloseError(in.err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, in.err)
			}
			return nil, ErrConnectionClosed
		}
		switch in.kind {
		case websocket.TextMessage:
			return in.data, nil
		case websocket.BinaryMessage:
			return nil, ErrBinaryMessage
		default:
			// Control frames are handled inside gorilla; anything else
			// is treated as a quiet tick.
			return nil, ErrReceiveTimeout
		}
	case <-timer.C:
		return nil, ErrReceiveTimeout
	}
}

func (t *wsTransport) SendText(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.closed.Load() {
		return ErrConnectionClosed
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

// Close sends a close frame with the given status code and tears down the
// connection. Safe to call more than once.
func (t *wsTransport) Close(code int) error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.done)
	t.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, "")
	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	t.conn.WriteMessage(websocket.CloseMessage, msg)
	t.writeMu.Unlock()
	return t.conn.Close()
}

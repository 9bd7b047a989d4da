package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common session and transport conditions.
var (
	// ErrSessionClosed is returned when an operation is attempted on a
	// closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrConnectionClosed is returned by a Transport once the peer is gone.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrReceiveTimeout is returned by Transport.Receive on a quiet tick.
	ErrReceiveTimeout = errors.New("server: receive timeout")

	// ErrBinaryMessage is returned by Transport.Receive when the client
	// sends a binary frame, which the protocol does not support.
	ErrBinaryMessage = errors.New("server: binary message not supported")

	// ErrWriteTimeout is returned when sending to a client times out.
	ErrWriteTimeout = errors.New("server: write timeout")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}

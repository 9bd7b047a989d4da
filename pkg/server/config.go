package server

import (
	"net/http"
	"time"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// IdlePollInterval is the receive timeout used when nothing recent
	// suggests a burst of traffic. Most debugger interaction is
	// low-frequency, so this leans toward cheap.
	// Default: 1/60 second.
	IdlePollInterval time.Duration

	// ActivePollInterval is the receive timeout used inside a
	// high-activity window, when a deferred request suggests more events
	// are about to follow (stepping, for instance).
	// Default: 1 millisecond.
	ActivePollInterval time.Duration

	// HighActivityTicks is the number of loop ticks a high-activity
	// window lasts. The counter decrements once per tick whether or not
	// a message arrived, so at the default poll intervals the window
	// covers roughly one second.
	// Default: 1000.
	HighActivityTicks int

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 1MB.
	MaxMessageSize int64

	// ReceiveBuffer is the depth of the transport's inbound queue.
	// Default: 16.
	ReceiveBuffer int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		IdlePollInterval:   time.Second / 60,
		ActivePollInterval: time.Millisecond,
		HighActivityTicks:  1000,
		WriteTimeout:       10 * time.Second,
		MaxMessageSize:     1 << 20,
		ReceiveBuffer:      16,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ServerConfig holds configuration for the HTTP/WebSocket surface.
type ServerConfig struct {
	// Subprotocol is the websocket subprotocol the server negotiates.
	// Default: "debugger.emucore.dev".
	Subprotocol string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin. The default
	// accepts any origin; debuggers commonly connect from local tooling
	// rather than browsers on the same origin.
	CheckOrigin func(r *http.Request) bool

	// Session is the per-session configuration.
	// Default: DefaultSessionConfig().
	Session *SessionConfig
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Subprotocol:     "debugger.emucore.dev",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
		Session:         DefaultSessionConfig(),
	}
}

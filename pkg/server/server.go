package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server accepts debugger connections, upgrades them to the debugwire
// subprotocol, and runs one Session per connection. It owns the
// Coordinator shared by all sessions.
type Server struct {
	config   *ServerConfig
	coord    *Coordinator
	registry *Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *Metrics

	// host, when set, receives the lifecycle hook on first connect.
	host Host
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHost sets the instrumented host process. The coordinator's
// lifecycle guard is hooked into it once, on the first connection.
func WithHost(host Host) Option {
	return func(s *Server) {
		s.host = host
	}
}

// WithMetrics sets the metrics sink. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server for the given registry. A nil config means
// DefaultServerConfig().
func New(config *ServerConfig, registry *Registry, opts ...Option) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Session == nil {
		config.Session = DefaultSessionConfig()
	}
	s := &Server{
		config:   config,
		registry: registry,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
			Subprotocols:    []string{config.Subprotocol},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coord = NewCoordinator(s.logger)
	return s
}

// Coordinator returns the server's coordinator, the registration point
// for host lifecycle notifications and the stop entry point.
func (s *Server) Coordinator() *Coordinator {
	return s.coord
}

// StopAll requests every live session to close and blocks until the last
// one has fully torn down.
func (s *Server) StopAll() {
	s.coord.StopAll()
}

// HandleDebugger upgrades an HTTP request to a debugger connection and
// runs its session loop on the current goroutine until the connection
// ends, mirroring the one-task-per-session model.
func (s *Server) HandleDebugger(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	if got := conn.Subprotocol(); got != s.config.Subprotocol {
		s.logger.Warn("client did not negotiate subprotocol",
			"want", s.config.Subprotocol, "got", got)
	}

	if s.host != nil {
		s.coord.Hook(s.host)
	}

	transport := newWSTransport(conn, s.config.Session)
	sess := NewSession(transport, s.coord, s.registry, s.config.Session, s.logger, s.metrics)
	sess.Run()
}

// Router returns an http.Handler exposing the debugger endpoint at
// /debugger, Prometheus metrics at /metrics, and a trivial health check.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/debugger", s.HandleDebugger)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

// Package game exposes host and game metadata over the debugger protocol.
//
// The Subscriber answers the "version" handshake every client is expected
// to send first, plus "game.status" queries. The Broadcaster pushes
// "game.start" and "game.quit" events when the host's run state flips
// between ticks.
package game

import (
	"github.com/emucore/debugwire/pkg/server"
)

// Status is the host's coarse run state.
type Status int

const (
	// StatusIdle means no game is loaded.
	StatusIdle Status = iota
	// StatusRunning means a game is loaded and executing.
	StatusRunning
)

// Source reports the host's current run state and loaded title.
type Source interface {
	Status() Status
	// Title returns the loaded game's title, or "" when idle.
	Title() string
}

// Info identifies the host in the version handshake.
type Info struct {
	Name    string
	Version string
}

// Subscriber answers metadata requests. It holds no per-session state.
type Subscriber struct {
	Info   Info
	Source Source
}

// Init implements server.Subscriber.
func (s *Subscriber) Init(m server.HandlerMap) any {
	m.Bind("version", s.handleVersion)
	m.Bind("game.status", s.handleStatus)
	return nil
}

func (s *Subscriber) handleVersion(req *server.Request) {
	req.Respond(map[string]any{
		"name":    s.Info.Name,
		"version": s.Info.Version,
	})
}

func (s *Subscriber) handleStatus(req *server.Request) {
	running := s.Source.Status() == StatusRunning
	fields := map[string]any{
		"running": running,
	}
	if running {
		fields["title"] = s.Source.Title()
	}
	req.Respond(fields)
}

// Broadcaster announces run-state edges. One instance per session.
type Broadcaster struct {
	source Source
	last   Status
}

// NewBroadcaster returns a factory producing per-session broadcasters.
func NewBroadcaster(source Source) server.BroadcasterFactory {
	return func() server.Broadcaster {
		return &Broadcaster{source: source, last: source.Status()}
	}
}

// Broadcast implements server.Broadcaster.
func (b *Broadcaster) Broadcast(s *server.Session) {
	cur := b.source.Status()
	if cur == b.last {
		return
	}
	b.last = cur
	switch cur {
	case StatusRunning:
		s.SendEvent("game.start", map[string]any{"title": b.source.Title()})
	case StatusIdle:
		s.SendEvent("game.quit", nil)
	}
}

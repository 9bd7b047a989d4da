// Package stepping exposes CPU stepping control over the debugger
// protocol.
//
// Step requests are inherently asynchronous: the host performs the step
// on its own schedule and the new state is announced by the Broadcaster.
// The "cpu.step" handler therefore defers its request, which drops the
// session into high-activity polling until the announcement lands.
package stepping

import (
	"sync"

	"github.com/emucore/debugwire/pkg/server"
)

// Core is the host CPU being controlled.
type Core interface {
	// Stepping reports whether execution is paused at a step boundary.
	Stepping() bool

	// Generation is a counter the host bumps on every stepping-state
	// change, so pollers can detect edges without comparing full state.
	Generation() uint64

	// PC returns the current program counter.
	PC() uint32

	// RequestStep asks the host to execute one instruction. Must not
	// block; completion shows up as a Generation bump.
	RequestStep()

	// Resume asks the host to leave stepping and run freely.
	Resume()
}

// Subscriber handles stepping requests. It tracks which sessions have
// stepping interest so the host side can query it; that tracking is the
// per-session state handed back at Shutdown.
type Subscriber struct {
	core Core

	mu      sync.Mutex
	clients map[*clientState]struct{}
}

type clientState struct {
	steps int
}

// NewSubscriber creates a stepping subscriber for a host core.
func NewSubscriber(core Core) *Subscriber {
	return &Subscriber{
		core:    core,
		clients: make(map[*clientState]struct{}),
	}
}

// Init implements server.Subscriber.
func (s *Subscriber) Init(m server.HandlerMap) any {
	st := &clientState{}
	s.mu.Lock()
	s.clients[st] = struct{}{}
	s.mu.Unlock()

	m.Bind("cpu.stepping", func(req *server.Request) {
		req.Respond(map[string]any{
			"stepping": s.core.Stepping(),
			"pc":       s.core.PC(),
		})
	})
	m.Bind("cpu.step", func(req *server.Request) {
		st.steps++
		s.core.RequestStep()
		// Answered later by the broadcaster once the host has stepped.
		req.Defer()
	})
	m.Bind("cpu.resume", func(req *server.Request) {
		s.core.Resume()
		req.Respond(nil)
	})
	return st
}

// Shutdown implements server.Finalizer.
func (s *Subscriber) Shutdown(state any) {
	st := state.(*clientState)
	s.mu.Lock()
	delete(s.clients, st)
	s.mu.Unlock()
}

// ClientCount reports how many sessions currently hold stepping state.
func (s *Subscriber) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcaster announces stepping-state changes. One instance per session.
type Broadcaster struct {
	core    Core
	lastGen uint64
}

// NewBroadcaster returns a factory producing per-session broadcasters.
func NewBroadcaster(core Core) server.BroadcasterFactory {
	return func() server.Broadcaster {
		return &Broadcaster{core: core, lastGen: core.Generation()}
	}
}

// Broadcast implements server.Broadcaster.
func (b *Broadcaster) Broadcast(s *server.Session) {
	gen := b.core.Generation()
	if gen == b.lastGen {
		return
	}
	b.lastGen = gen
	s.SendEvent("cpu.stepping", map[string]any{
		"stepping": b.core.Stepping(),
		"pc":       b.core.PC(),
	})
}

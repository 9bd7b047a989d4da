package server

import (
	"log/slog"
	"sync"
)

// Stage is a host process lifecycle transition, as reported by the host's
// own notifier thread.
type Stage int

const (
	// StageStarting means the host has begun starting up.
	StageStarting Stage = iota
	// StageStartComplete means the host finished starting up.
	StageStartComplete
	// StageStopping means the host has begun shutting down.
	StageStopping
	// StageStopped means the host finished shutting down.
	StageStopped
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StageStartComplete:
		return "start_complete"
	case StageStopping:
		return "stopping"
	case StageStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Host is the instrumented process being debugged. The server registers
// for lifecycle notifications exactly once per Coordinator, no matter how
// many sessions connect.
type Host interface {
	// ListenLifecycle registers fn to be called synchronously on the
	// host's notifier thread at every lifecycle stage.
	ListenLifecycle(fn func(Stage))
}

// guardLock is the lifecycle guard's locking surface. It exists so tests
// can substitute an instrumented lock; production always uses sync.Mutex.
type guardLock interface {
	Lock()
	Unlock()
}

// Coordinator owns all cross-session state: the lifecycle guard, the live
// session count, and the cooperative stop flag. One Coordinator exists
// per server; tests may create as many independent ones as they like.
type Coordinator struct {
	logger *slog.Logger

	// lifecycle is the guard serializing host start/stop transitions
	// against session activity. The host side holds it from StageStarting
	// to StageStartComplete (and StageStopping to StageStopped) - an
	// asymmetric critical section spanning two separate callbacks.
	lifecycle guardLock

	mu            sync.Mutex
	cond          *sync.Cond
	sessions      int
	stopRequested bool

	hookOnce sync.Once
}

// NewCoordinator creates a Coordinator. A nil logger falls back to
// slog.Default().
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		logger:    logger,
		lifecycle: &sync.Mutex{},
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Hook registers the coordinator's lifecycle handler with the host.
// Safe to call once per session; only the first call registers.
func (c *Coordinator) Hook(host Host) {
	c.hookOnce.Do(func() {
		host.ListenLifecycle(c.OnLifecycleStage)
	})
}

// OnLifecycleStage is called by the host whenever a start/stop transition
// begins or ends. On StageStarting and StageStopping it acquires the
// lifecycle guard, blocking until no session is mid-dispatch, mid-broadcast,
// or mid-shutdown; on StageStartComplete and StageStopped it releases it.
func (c *Coordinator) OnLifecycleStage(stage Stage) {
	switch stage {
	case StageStarting, StageStopping:
		if n := c.SessionCount(); n > 0 {
			c.logger.Debug("waiting for debuggers before host transition",
				"stage", stage, "sessions", n)
		}
		c.lifecycle.Lock()

	case StageStartComplete, StageStopped:
		c.lifecycle.Unlock()
		if n := c.SessionCount(); n > 0 {
			c.logger.Debug("debuggers released after host transition",
				"stage", stage, "sessions", n)
		}
	}
}

// StopAll sets the process-wide stop flag and blocks until every live
// session has observed it and fully torn down. With no sessions live it
// returns immediately. The flag is cleared before returning so a later
// round of sessions starts unaffected.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.sessions != 0 {
		c.stopRequested = true
		c.cond.Wait()
	}
	// Reset it back for next time.
	c.stopRequested = false
}

// SessionCount returns the number of live sessions.
func (c *Coordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// addSession and removeSession are called exactly once each per session,
// on accept and on full teardown.
func (c *Coordinator) addSession() {
	c.mu.Lock()
	c.sessions++
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *Coordinator) removeSession() {
	c.mu.Lock()
	c.sessions--
	c.cond.Broadcast()
	c.mu.Unlock()
}

// stopPending reports whether a StopAll drain is in progress.
func (c *Coordinator) stopPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRequested
}

// guardDo runs fn while holding the lifecycle guard.
func (c *Coordinator) guardDo(fn func()) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	fn()
}

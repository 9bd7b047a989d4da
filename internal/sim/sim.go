// Package sim provides a simulated host process for the reference
// daemon: a stand-in emulator core that boots a game, writes log lines,
// and completes step requests, so the debugger surface can be exercised
// without linking a real core.
package sim

import (
	"log/slog"
	"sync"
	"time"

	"github.com/emucore/debugwire/pkg/handlers/game"
	"github.com/emucore/debugwire/pkg/server"
)

// Host is the simulated core. It implements server.Host, game.Source and
// stepping.Core.
type Host struct {
	logger *slog.Logger

	mu        sync.Mutex
	listeners []func(server.Stage)
	running   bool
	title     string
	stepping  bool
	gen       uint64
	pc        uint32
	stop      chan struct{}
}

// New creates a stopped host.
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger: logger,
		pc:     0x08804000,
	}
}

// ListenLifecycle implements server.Host.
func (h *Host) ListenLifecycle(fn func(server.Stage)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *Host) notify(stage server.Stage) {
	h.mu.Lock()
	listeners := make([]func(server.Stage), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(stage)
	}
}

// Start boots the simulated game. The lifecycle notifications run
// synchronously on the caller, like a real core's notifier thread.
func (h *Host) Start(title string) {
	h.notify(server.StageStarting)
	h.mu.Lock()
	h.running = true
	h.title = title
	h.stop = make(chan struct{})
	stop := h.stop
	h.mu.Unlock()
	h.notify(server.StageStartComplete)

	h.logger.Info("game started", "channel", "boot", "title", title)
	go h.chatter(stop)
}

// chatter emits periodic log lines while the game runs.
func (h *Host) chatter(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.mu.Lock()
			pc := h.pc
			h.mu.Unlock()
			h.logger.Debug("frame presented", "channel", "display", "pc", pc)
		case <-stop:
			return
		}
	}
}

// Stop shuts the simulated game down.
func (h *Host) Stop() {
	h.notify(server.StageStopping)
	h.mu.Lock()
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	h.running = false
	h.title = ""
	h.mu.Unlock()
	h.notify(server.StageStopped)
	h.logger.Info("game stopped", "channel", "boot")
}

// Status implements game.Source.
func (h *Host) Status() game.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return game.StatusRunning
	}
	return game.StatusIdle
}

// Title implements game.Source.
func (h *Host) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

// Stepping implements stepping.Core.
func (h *Host) Stepping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stepping
}

// Generation implements stepping.Core.
func (h *Host) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

// PC implements stepping.Core.
func (h *Host) PC() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pc
}

// RequestStep implements stepping.Core. The step completes shortly after
// on the host's own schedule.
func (h *Host) RequestStep() {
	go func() {
		time.Sleep(2 * time.Millisecond)
		h.mu.Lock()
		h.stepping = true
		h.pc += 4
		h.gen++
		h.mu.Unlock()
	}()
}

// Resume implements stepping.Core.
func (h *Host) Resume() {
	h.mu.Lock()
	h.stepping = false
	h.gen++
	h.mu.Unlock()
}

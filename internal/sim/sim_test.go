package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/emucore/debugwire/pkg/handlers/game"
	"github.com/emucore/debugwire/pkg/server"
)

func testLoggerHost() *Host {
	return New(nil)
}

func TestHost_LifecycleNotifications(t *testing.T) {
	h := testLoggerHost()

	var mu sync.Mutex
	var stages []server.Stage
	h.ListenLifecycle(func(s server.Stage) {
		mu.Lock()
		stages = append(stages, s)
		mu.Unlock()
	})

	h.Start("Test Title")
	h.Stop()

	want := []server.Stage{
		server.StageStarting,
		server.StageStartComplete,
		server.StageStopping,
		server.StageStopped,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stages = %v, want %v", stages, want)
		}
	}
}

func TestHost_StatusTracksRunState(t *testing.T) {
	h := testLoggerHost()
	if h.Status() != game.StatusIdle {
		t.Error("fresh host not idle")
	}
	h.Start("Test Title")
	if h.Status() != game.StatusRunning || h.Title() != "Test Title" {
		t.Error("started host not running")
	}
	h.Stop()
	if h.Status() != game.StatusIdle || h.Title() != "" {
		t.Error("stopped host not idle")
	}
}

func TestHost_StepBumpsGeneration(t *testing.T) {
	h := testLoggerHost()
	pc := h.PC()
	gen := h.Generation()

	h.RequestStep()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && h.Generation() == gen {
		time.Sleep(time.Millisecond)
	}

	if h.Generation() == gen {
		t.Fatal("step never completed")
	}
	if !h.Stepping() || h.PC() != pc+4 {
		t.Errorf("after step: stepping=%v pc=%#x", h.Stepping(), h.PC())
	}

	h.Resume()
	if h.Stepping() {
		t.Error("resume left host stepping")
	}
}

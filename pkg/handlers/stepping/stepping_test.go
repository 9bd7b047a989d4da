package stepping

import (
	"sync"
	"testing"
	"time"

	"github.com/emucore/debugwire/pkg/server"
	"github.com/emucore/debugwire/pkg/servertest"
)

// fakeCore simulates a host CPU: steps complete asynchronously after a
// short delay, bumping the generation counter.
type fakeCore struct {
	mu       sync.Mutex
	stepping bool
	gen      uint64
	pc       uint32
	steps    int
	resumes  int
}

func (c *fakeCore) Stepping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepping
}

func (c *fakeCore) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *fakeCore) PC() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc
}

func (c *fakeCore) RequestStep() {
	c.mu.Lock()
	c.steps++
	c.mu.Unlock()
	go func() {
		time.Sleep(5 * time.Millisecond)
		c.mu.Lock()
		c.stepping = true
		c.pc += 4
		c.gen++
		c.mu.Unlock()
	}()
}

func (c *fakeCore) Resume() {
	c.mu.Lock()
	c.resumes++
	c.stepping = false
	c.gen++
	c.mu.Unlock()
}

func TestStep_DeferredAndAnnouncedByBroadcaster(t *testing.T) {
	core := &fakeCore{pc: 0x8804000}
	sub := NewSubscriber(core)
	reg := server.NewRegistry().
		Subscribe(sub).
		Broadcast(NewBroadcaster(core))
	h := servertest.New(t, reg)
	defer h.Close()

	h.Send(`{"event":"cpu.step","ticket":5}`)

	// No direct response; the broadcaster reports the completed step.
	resp := h.Expect(t, "cpu.stepping")
	if !resp.Get("stepping").Bool() {
		t.Errorf("stepping = false after step: %s", resp.Raw)
	}
	if got := resp.Get("pc").Uint(); got != 0x8804004 {
		t.Errorf("pc = %#x, want %#x", got, 0x8804004)
	}
	core.mu.Lock()
	steps := core.steps
	core.mu.Unlock()
	if steps != 1 {
		t.Errorf("core saw %d step requests, want 1", steps)
	}
}

func TestSteppingQueryAndResume(t *testing.T) {
	core := &fakeCore{stepping: true, pc: 0x1000}
	reg := server.NewRegistry().Subscribe(NewSubscriber(core))
	h := servertest.New(t, reg)
	defer h.Close()

	h.Send(`{"event":"cpu.stepping","ticket":1}`)
	resp := h.Expect(t, "cpu.stepping")
	if !resp.Get("stepping").Bool() || resp.Get("pc").Uint() != 0x1000 {
		t.Errorf("query response = %s", resp.Raw)
	}

	h.Send(`{"event":"cpu.resume","ticket":2}`)
	resp = h.Expect(t, "cpu.resume")
	if resp.Get("ticket").Int() != 2 {
		t.Errorf("resume response = %s", resp.Raw)
	}
	core.mu.Lock()
	resumes := core.resumes
	core.mu.Unlock()
	if resumes != 1 {
		t.Errorf("core saw %d resumes, want 1", resumes)
	}
}

func TestShutdown_ReleasesClientState(t *testing.T) {
	core := &fakeCore{}
	sub := NewSubscriber(core)
	reg := server.NewRegistry().Subscribe(sub)

	h := servertest.New(t, reg)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sub.ClientCount() != 1 {
		time.Sleep(2 * time.Millisecond)
	}
	if got := sub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d while connected, want 1", got)
	}
	h.Close()
	if got := sub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after close, want 0", got)
	}
}

package logmsg

import (
	"log/slog"
	"testing"
	"time"

	"github.com/emucore/debugwire/pkg/protocol"
	"github.com/emucore/debugwire/pkg/server"
	"github.com/emucore/debugwire/pkg/servertest"
)

func TestBuffer_SinceAndEviction(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(Entry{Message: string(rune('a' + i))})
	}

	// Oldest two evicted; a cursor at 0 reports the loss.
	entries, next, dropped := b.Since(0)
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(entries) != 3 || entries[0].Message != "c" || entries[2].Message != "e" {
		t.Errorf("entries = %v", entries)
	}
	if next != 5 {
		t.Errorf("next = %d, want 5", next)
	}

	// Caught-up cursor sees nothing.
	entries, next, dropped = b.Since(next)
	if len(entries) != 0 || dropped != 0 || next != 5 {
		t.Errorf("Since(tail) = %v, %d, %d", entries, next, dropped)
	}
}

func TestBroadcaster_DrainsNewLinesOnly(t *testing.T) {
	buf := NewBuffer(64)
	buf.Append(Entry{Message: "before connect"})

	reg := server.NewRegistry().Broadcast(NewBroadcaster(buf))
	h := servertest.New(t, reg)
	defer h.Close()

	buf.Append(Entry{
		Time:    time.Now(),
		Level:   protocol.LevelInfo,
		Channel: "kernel",
		Message: "thread started",
	})

	e := h.Expect(t, "log")
	if e.Get("message").String() != "thread started" {
		t.Fatalf("got backlog or wrong line: %s", e.Raw)
	}
	if e.Get("channel").String() != "kernel" || e.Get("level").Int() != int64(protocol.LevelInfo) {
		t.Errorf("log event = %s", e.Raw)
	}
}

func TestSlogHandler_CapturesRecords(t *testing.T) {
	buf := NewBuffer(16)
	logger := slog.New(NewSlogHandler(buf, slog.LevelInfo))

	logger.Debug("too quiet")
	logger.Info("loaded", "channel", "loader")
	logger.Error("bad checksum")

	entries, _, _ := buf.Since(0)
	if len(entries) != 2 {
		t.Fatalf("captured %d entries, want 2", len(entries))
	}
	if entries[0].Channel != "loader" || entries[0].Level != protocol.LevelInfo {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Level != protocol.LevelError {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestSlogHandler_WithAttrsChannel(t *testing.T) {
	buf := NewBuffer(16)
	logger := slog.New(NewSlogHandler(buf, slog.LevelDebug)).With("channel", "jit")

	logger.Info("block compiled")

	entries, _, _ := buf.Since(0)
	if len(entries) != 1 || entries[0].Channel != "jit" {
		t.Fatalf("entries = %+v", entries)
	}
}

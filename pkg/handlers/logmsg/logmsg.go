// Package logmsg streams host log lines to debugger clients.
//
// Host code logs into a Buffer, either directly or through the slog
// bridge returned by NewSlogHandler. Each session's Broadcaster keeps a
// cursor into the buffer and drains new entries once per tick as "log"
// events. The buffer is bounded; a debugger that polls too slowly loses
// the oldest lines and is told how many.
package logmsg

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emucore/debugwire/pkg/protocol"
	"github.com/emucore/debugwire/pkg/server"
)

// Entry is one captured log line.
type Entry struct {
	Time    time.Time
	Level   protocol.Level
	Channel string
	Message string
}

// Buffer is a bounded, process-wide log ring shared by all sessions.
type Buffer struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	start   uint64 // sequence number of entries[0]
}

// NewBuffer creates a buffer retaining at most capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Buffer{cap: capacity}
}

// Append records one entry, evicting the oldest when full.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	if len(b.entries) == b.cap {
		b.entries = b.entries[1:]
		b.start++
	}
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

// Since returns all entries at or after seq, the sequence to resume
// from, and how many entries were already evicted past the cursor.
func (b *Buffer) Since(seq uint64) (entries []Entry, next uint64, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq < b.start {
		dropped = b.start - seq
		seq = b.start
	}
	offset := int(seq - b.start)
	if offset < len(b.entries) {
		entries = make([]Entry, len(b.entries)-offset)
		copy(entries, b.entries[offset:])
	}
	return entries, b.start + uint64(len(b.entries)), dropped
}

// Seq returns the sequence one past the newest entry, the cursor a new
// session should start from to see only fresh lines.
func (b *Buffer) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.start + uint64(len(b.entries))
}

// Broadcaster drains new log entries to one session per tick.
type Broadcaster struct {
	buf    *Buffer
	cursor uint64
}

// NewBroadcaster returns a factory producing per-session broadcasters.
// Each starts at the buffer's current tail: debuggers see lines logged
// after they connected, not the backlog.
func NewBroadcaster(buf *Buffer) server.BroadcasterFactory {
	return func() server.Broadcaster {
		return &Broadcaster{buf: buf, cursor: buf.Seq()}
	}
}

// Broadcast implements server.Broadcaster.
func (b *Broadcaster) Broadcast(s *server.Session) {
	entries, next, dropped := b.buf.Since(b.cursor)
	b.cursor = next
	if dropped > 0 {
		s.SendEvent("log", map[string]any{
			"level":   int(protocol.LevelWarn),
			"channel": "debugger",
			"message": "log overflow, lines dropped",
			"dropped": dropped,
		})
	}
	for _, e := range entries {
		s.SendEvent("log", map[string]any{
			"timestamp": e.Time.UnixMilli(),
			"level":     int(e.Level),
			"channel":   e.Channel,
			"message":   e.Message,
		})
	}
}

// SlogHandler mirrors slog records into a Buffer, so the host's normal
// logging shows up in connected debuggers.
type SlogHandler struct {
	buf     *Buffer
	min     slog.Level
	channel string
}

// NewSlogHandler creates a bridge capturing records at or above min.
func NewSlogHandler(buf *Buffer, min slog.Level) *SlogHandler {
	return &SlogHandler{buf: buf, min: min}
}

// Enabled implements slog.Handler.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

// Handle implements slog.Handler.
func (h *SlogHandler) Handle(_ context.Context, rec slog.Record) error {
	channel := h.channel
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "channel" {
			channel = a.Value.String()
			return false
		}
		return true
	})
	h.buf.Append(Entry{
		Time:    rec.Time,
		Level:   protocol.LevelFromSlog(rec.Level),
		Channel: channel,
		Message: rec.Message,
	})
	return nil
}

// WithAttrs implements slog.Handler. A "channel" attr set here sticks to
// all records; other attrs are not forwarded on the wire.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == "channel" {
			clone.channel = a.Value.String()
		}
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *SlogHandler) WithGroup(string) slog.Handler {
	return h
}

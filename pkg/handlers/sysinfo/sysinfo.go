// Package sysinfo periodically pushes host process resource usage to
// debugger clients, so a debugger UI can show whether a stall is the
// game or the machine.
package sysinfo

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/emucore/debugwire/pkg/server"
)

// Broadcaster samples process CPU and memory at most once per Interval
// and emits a "sysinfo" event. Sampling with gopsutil is a few syscalls,
// well within the non-blocking broadcast contract.
type Broadcaster struct {
	interval time.Duration
	proc     *process.Process
	last     time.Time
}

// DefaultInterval is how often stats are pushed unless overridden.
const DefaultInterval = 2 * time.Second

// NewBroadcaster returns a factory producing per-session broadcasters.
// An interval of 0 means DefaultInterval.
func NewBroadcaster(interval time.Duration) (server.BroadcasterFactory, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return func() server.Broadcaster {
		return &Broadcaster{interval: interval, proc: proc}
	}, nil
}

// Broadcast implements server.Broadcaster.
func (b *Broadcaster) Broadcast(s *server.Session) {
	now := time.Now()
	if now.Sub(b.last) < b.interval {
		return
	}
	b.last = now

	fields := map[string]any{}
	if cpu, err := b.proc.CPUPercent(); err == nil {
		fields["cpu_percent"] = cpu
	}
	if mi, err := b.proc.MemoryInfo(); err == nil {
		fields["rss_bytes"] = mi.RSS
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields["host_mem_used_percent"] = vm.UsedPercent
	}
	if len(fields) == 0 {
		return
	}
	s.SendEvent("sysinfo", fields)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8200" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.Session.HighActivityTicks != 1000 {
		t.Errorf("HighActivityTicks = %d, want 1000", cfg.Session.HighActivityTicks)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debugwire.yaml")
	body := `
server:
  port: 9001
session:
  active_poll_interval: 2ms
  high_activity_ticks: 500
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Session.ActivePollInterval != 2*time.Millisecond {
		t.Errorf("active poll = %v", cfg.Session.ActivePollInterval)
	}
	if cfg.Session.HighActivityTicks != 500 {
		t.Errorf("ticks = %d", cfg.Session.HighActivityTicks)
	}
	// Untouched fields keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: -1\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"inverted intervals", "session:\n  active_poll_interval: 1s\n  idle_poll_interval: 1ms\n"},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() accepted invalid config")
			}
		})
	}
}

func TestServerConfigFor(t *testing.T) {
	cfg := Default()
	cfg.Server.Subprotocol = "debugger.example.org"
	sc := cfg.ServerConfigFor()
	if sc.Subprotocol != "debugger.example.org" {
		t.Errorf("subprotocol = %q", sc.Subprotocol)
	}
	if sc.Session.IdlePollInterval != cfg.Session.IdlePollInterval {
		t.Error("session config not carried over")
	}
}

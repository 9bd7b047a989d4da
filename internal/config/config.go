// Package config loads the debugwire daemon configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emucore/debugwire/pkg/server"
)

// Config is the daemon configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	Sysinfo SysinfoConfig `yaml:"sysinfo"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Subprotocol string `yaml:"subprotocol"`
}

// SessionConfig configures per-session behavior.
type SessionConfig struct {
	IdlePollInterval   time.Duration `yaml:"idle_poll_interval"`
	ActivePollInterval time.Duration `yaml:"active_poll_interval"`
	HighActivityTicks  int           `yaml:"high_activity_ticks"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	MaxMessageSize     int64         `yaml:"max_message_size"`
}

// LogConfig configures daemon logging and the debugger log stream.
type LogConfig struct {
	Level       string `yaml:"level"`
	BufferLines int    `yaml:"buffer_lines"`
}

// SysinfoConfig configures the system stats broadcaster.
type SysinfoConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sess := server.DefaultSessionConfig()
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8200,
			Subprotocol: "debugger.emucore.dev",
		},
		Session: SessionConfig{
			IdlePollInterval:   sess.IdlePollInterval,
			ActivePollInterval: sess.ActivePollInterval,
			HighActivityTicks:  sess.HighActivityTicks,
			WriteTimeout:       sess.WriteTimeout,
			MaxMessageSize:     sess.MaxMessageSize,
		},
		Log: LogConfig{
			Level:       "info",
			BufferLines: 4096,
		},
		Sysinfo: SysinfoConfig{
			Enabled:  true,
			Interval: 2 * time.Second,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Session.HighActivityTicks < 0 {
		return fmt.Errorf("config: high_activity_ticks must be >= 0")
	}
	if c.Session.ActivePollInterval > c.Session.IdlePollInterval {
		return fmt.Errorf("config: active_poll_interval exceeds idle_poll_interval")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel returns the configured daemon log level.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
}

// ServerConfigFor builds the server-side config from the file values.
func (c *Config) ServerConfigFor() *server.ServerConfig {
	sc := server.DefaultServerConfig()
	if c.Server.Subprotocol != "" {
		sc.Subprotocol = c.Server.Subprotocol
	}
	sc.Session = &server.SessionConfig{
		IdlePollInterval:   c.Session.IdlePollInterval,
		ActivePollInterval: c.Session.ActivePollInterval,
		HighActivityTicks:  c.Session.HighActivityTicks,
		WriteTimeout:       c.Session.WriteTimeout,
		MaxMessageSize:     c.Session.MaxMessageSize,
		ReceiveBuffer:      server.DefaultSessionConfig().ReceiveBuffer,
	}
	return sc
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emucore/debugwire/internal/config"
	"github.com/emucore/debugwire/internal/sim"
	"github.com/emucore/debugwire/pkg/handlers/game"
	"github.com/emucore/debugwire/pkg/handlers/logmsg"
	"github.com/emucore/debugwire/pkg/handlers/stepping"
	"github.com/emucore/debugwire/pkg/handlers/sysinfo"
	"github.com/emucore/debugwire/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
		title   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the debugger gateway with a simulated host core",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(cfgPath, addr, title)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&title, "title", "Simulated Game", "title the simulated host boots")
	return cmd
}

func runServe(cfgPath, addr, title string) error {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr == "" {
		addr = cfg.Addr()
	}

	// Daemon logs go to stderr and, through the buffer, to every
	// connected debugger as "log" events.
	logBuf := logmsg.NewBuffer(cfg.Log.BufferLines)
	logger := slog.New(logmsg.Multi(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
		logmsg.NewSlogHandler(logBuf, cfg.SlogLevel()),
	))

	host := sim.New(logger)

	registry := server.NewRegistry().
		Subscribe(&game.Subscriber{
			Info:   game.Info{Name: "debugwire", Version: version},
			Source: host,
		}).
		Subscribe(stepping.NewSubscriber(host)).
		Broadcast(logmsg.NewBroadcaster(logBuf)).
		Broadcast(game.NewBroadcaster(host)).
		Broadcast(stepping.NewBroadcaster(host))

	if cfg.Sysinfo.Enabled {
		factory, err := sysinfo.NewBroadcaster(cfg.Sysinfo.Interval)
		if err != nil {
			logger.Warn("sysinfo broadcaster unavailable", "error", err)
		} else {
			registry.Broadcast(factory)
		}
	}

	srv := server.New(cfg.ServerConfigFor(), registry,
		server.WithLogger(logger),
		server.WithHost(host),
		server.WithMetrics(server.NewMetrics()),
	)

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	host.Start(title)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	// Drain debugger sessions first, then the host, then the listener.
	srv.StopAll()
	host.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

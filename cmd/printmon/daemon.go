package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/printmon/internal/config"
	"github.com/1broseidon/printmon/internal/history"
	"github.com/1broseidon/printmon/internal/ipc"
	"github.com/1broseidon/printmon/internal/monitor"
	"github.com/1broseidon/printmon/internal/platform"
	"github.com/1broseidon/printmon/internal/telemetry"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Poll the slicer in the foreground and serve status over IPC.")
		fmt.Fprintln(os.Stderr, "SIGHUP or 'RELOAD' over IPC reloads the configuration.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"pattern_set", cfg.PatternSet,
		"poll_interval_ms", cfg.PollIntervalMs,
		"files", res.Files)

	tree, err := platform.NewNativeTree(sessionOf(cfg))
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer closeTree(tree)()

	var recorder monitor.Recorder
	opts := ipc.ServerOptions{
		Logger: logger,
		LoadConfig: func() (*config.Config, error) {
			r, err := loadConfig(*path)
			if err != nil {
				return nil, err
			}
			return r.Config, nil
		},
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history", "path", cfg.History.Path, "error", err)
			return 1
		}
		defer store.Close()
		recorder = store
		opts.History = store
		logger.Info("recording history", "path", cfg.History.Path)
	}

	ex, err := newDaemonExtractor(cfg, tree, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		return 1
	}
	mon := monitor.New(monitor.Config{
		Interval: cfg.PollInterval(),
		Logger:   logger,
		Recorder: recorder,
	}, ex)

	reloadChan := make(chan *config.Config, 1)
	ipcServer, err := ipc.NewServer(cfg, mon, reloadChan, opts)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mon.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	apply := func(next *config.Config) {
		ex, err := newDaemonExtractor(next, tree, logger)
		if err != nil {
			logger.Error("config reload failed", "error", err)
			return
		}
		mon.SetPoller(ex)
		level.Set(next.SlogLevel())

		if next.Display != cfg.Display || next.XAuthority != cfg.XAuthority {
			logger.Warn("display settings changed; restart the daemon to apply")
		}
		if next.PollIntervalMs != cfg.PollIntervalMs {
			logger.Warn("poll_interval_ms changed; restart the daemon to apply")
		}
		if next.History != cfg.History {
			logger.Warn("history settings changed; restart the daemon to apply")
		}
		cfg = next
		logger.Info("config reloaded", "pattern_set", next.PatternSet)
	}

	logger.Info("printmon daemon started")
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Info("received SIGHUP, reloading config")
				r, err := loadConfig(*path)
				if err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				ipcServer.UpdateConfig(r.Config)
				apply(r.Config)

			case os.Interrupt, syscall.SIGTERM:
				logger.Info("shutting down printmon daemon")
				return 0
			}

		case next := <-reloadChan:
			apply(next)
		}
	}
}

func newDaemonExtractor(cfg *config.Config, tree platform.Tree, logger *slog.Logger) (*telemetry.Extractor, error) {
	l, err := cfg.NewLocator()
	if err != nil {
		return nil, err
	}
	opts := cfg.ExtractorOptions()
	opts.OnInvalidated = func(err error) {
		logger.Debug("cached handles invalidated", "error", err)
	}
	return telemetry.NewExtractor(tree, l, opts), nil
}

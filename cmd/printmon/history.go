package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/1broseidon/printmon/internal/history"
	"github.com/1broseidon/printmon/internal/ipc"
	"github.com/1broseidon/printmon/internal/telemetry"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	limit := fs.Int("limit", 20, "Number of readings to show, newest first")
	asJSON := fs.Bool("json", false, "Print readings as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon history [--path PATH] [--limit N] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show readings recorded by the daemon (requires history.enabled).")
		fmt.Fprintln(os.Stderr, "Reads the database directly when the daemon is not running.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	readings, err := loadHistory(*path, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		if readings == nil {
			readings = []*telemetry.Snapshot{}
		}
		if err := writeJSON(os.Stdout, readings); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	printHistory(os.Stdout, readings)
	return 0
}

func loadHistory(configPath string, limit int) ([]*telemetry.Snapshot, error) {
	client := ipc.NewClient()
	if client.Ping() == nil {
		data, err := client.GetHistory(limit)
		if err != nil {
			return nil, err
		}
		return data.Readings, nil
	}

	res, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(res.Config.History.Path); err != nil {
		return nil, fmt.Errorf("no history at %s (enable history and run the daemon): %w", res.Config.History.Path, err)
	}
	store, err := history.Open(res.Config.History.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return store.Recent(ctx, limit)
}

func printHistory(w io.Writer, readings []*telemetry.Snapshot) {
	if len(readings) == 0 {
		fmt.Fprintln(w, "no readings recorded")
		return
	}
	for _, s := range readings {
		fmt.Fprintf(w, "%s  %3d%%  layer %-9s  remaining %-12s  %s\n",
			s.At.Local().Format("2006-01-02 15:04:05"), s.Percent, s.Layer, s.RemainingTime, s.Task)
	}
}

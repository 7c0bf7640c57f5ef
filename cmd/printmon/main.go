package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/printmon/internal/config"
	"github.com/1broseidon/printmon/internal/ipc"
	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/platform"
	"github.com/1broseidon/printmon/internal/telemetry"
	"github.com/1broseidon/printmon/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "poll":
		os.Exit(runPoll(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "locate":
		os.Exit(runLocate(os.Args[2:]))
	case "dump":
		os.Exit(runDump(os.Args[2:]))
	case "history":
		os.Exit(runHistory(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: printmon <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the printmon daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  poll                Read the print status once")
	fmt.Fprintln(w, "  watch               Live view of the current print")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  locate              Locate the slicer controls and show their handles")
	fmt.Fprintln(w, "  dump                Capture the slicer window tree to YAML")
	fmt.Fprintln(w, "  history             Show recorded readings")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'printmon <command> --help' for command-specific options.")
}

// parseFlags parses args, mapping -h to exit code 0 and other errors to 2.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func sessionOf(cfg *config.Config) platform.Session {
	return platform.Session{Display: cfg.Display, XAuthority: cfg.XAuthority}
}

// openExtractor connects to the desktop and returns an extractor plus a
// function releasing the connection.
func openExtractor(cfg *config.Config) (*telemetry.Extractor, func(), error) {
	l, err := cfg.NewLocator()
	if err != nil {
		return nil, nil, err
	}
	tree, err := platform.NewNativeTree(sessionOf(cfg))
	if err != nil {
		return nil, nil, err
	}
	return telemetry.NewExtractor(tree, l, cfg.ExtractorOptions()), closeTree(tree), nil
}

func closeTree(tree platform.Tree) func() {
	return func() {
		if c, ok := tree.(platform.Closer); ok {
			c.Close()
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printSnapshot(w io.Writer, s *telemetry.Snapshot) {
	fmt.Fprintf(w, "task:           %s\n", s.Task)
	fmt.Fprintf(w, "percent:        %d\n", s.Percent)
	fmt.Fprintf(w, "layer:          %s\n", s.Layer)
	fmt.Fprintf(w, "remaining_time: %s\n", s.RemainingTime)
	if s.ETA != "" {
		fmt.Fprintf(w, "eta:            %s\n", s.ETA)
	}
	fmt.Fprintf(w, "total_time:     %s\n", s.TotalTime)
	fmt.Fprintf(w, "mass:           %s\n", s.Mass)
	fmt.Fprintf(w, "hotend:         %s\n", s.Hotend)
	fmt.Fprintf(w, "hotbed:         %s\n", s.Hotbed)
	if s.Box != nil {
		fmt.Fprintf(w, "box:            %s\n", *s.Box)
	}
}

func printUnavailable(w io.Writer, err error) {
	fmt.Fprintln(w, "Bambu Studio not found")
	if stage := locator.StageOf(err); stage != "" {
		fmt.Fprintf(w, "stage: %s\n", stage)
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		if err := writeJSON(os.Stdout, status); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, st *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:   %v\n", st.DaemonRunning)
	fmt.Fprintf(w, "uptime_seconds:   %d\n", st.UptimeSeconds)
	fmt.Fprintf(w, "pattern_set:      %s\n", st.PatternSet)
	fmt.Fprintf(w, "poll_interval_ms: %d\n", st.PollIntervalMs)
	fmt.Fprintf(w, "available:        %v\n", st.Monitor.Available)
	fmt.Fprintf(w, "polls:            %d\n", st.Monitor.Polls)
	fmt.Fprintf(w, "failures:         %d\n", st.Monitor.Failures)
	if st.Monitor.LastError != "" {
		fmt.Fprintf(w, "last_error:       %s\n", st.Monitor.LastError)
	}
	if st.Monitor.Snapshot != nil {
		fmt.Fprintln(w, "")
		printSnapshot(w, st.Monitor.Snapshot)
	}
}

func runPoll(args []string) int {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	asJSON := fs.Bool("json", false, "Print the snapshot as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon poll [--path PATH] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Read the print status once from the slicer window. Exits 1 when")
		fmt.Fprintln(os.Stderr, "no status is available.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ex, closeFn, err := openExtractor(res.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeFn()

	return pollOnce(os.Stdout, ex, *asJSON)
}

func pollOnce(w io.Writer, ex *telemetry.Extractor, asJSON bool) int {
	snap, err := ex.Poll()
	if err != nil {
		if asJSON {
			_ = writeJSON(w, map[string]any{
				"available": false,
				"error":     err.Error(),
				"stage":     locator.StageOf(err),
			})
		} else {
			printUnavailable(w, err)
		}
		return 1
	}
	if asJSON {
		if err := writeJSON(w, snap); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	printSnapshot(w, snap)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/printmon/config.yaml)")
	direct := fs.Bool("direct", false, "Read the window tree directly even when the daemon is running")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: printmon watch [--path PATH] [--direct]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Live view of the current print. Uses the daemon when it is running.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  r         Refresh now")
		fmt.Fprintln(os.Stderr, "  q, Esc    Quit")
		fmt.Fprintln(os.Stderr, "  Ctrl+C    Quit")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config

	var fetch tui.FetchFunc
	client := ipc.NewClient()
	if !*direct && client.Ping() == nil {
		fetch = func() tui.Update {
			snap, err := client.GetSnapshot()
			return tui.Update{Source: "daemon", Snapshot: snap, Err: err}
		}
	} else {
		ex, closeFn, err := openExtractor(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer closeFn()
		fetch = func() tui.Update {
			snap, err := ex.Poll()
			return tui.Update{Source: "direct", Snapshot: snap, Err: err}
		}
	}

	if err := tui.Run(fetch, cfg.PollInterval()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceBuiltin:
		if src.Name != "" {
			return "builtin:" + src.Name
		}
		return "builtin"
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}

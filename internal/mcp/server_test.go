package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/printmon/internal/ipc"
	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/locator/locatortest"
	"github.com/1broseidon/printmon/internal/monitor"
	"github.com/1broseidon/printmon/internal/platform"
	"github.com/1broseidon/printmon/internal/telemetry"
)

type fakeDaemon struct {
	status  *ipc.StatusData
	history *ipc.HistoryData
	err     error
	polled  bool
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) { return f.status, f.err }

func (f *fakeDaemon) PollNow() (*ipc.StatusData, error) {
	f.polled = true
	return f.status, f.err
}

func (f *fakeDaemon) GetHistory(int) (*ipc.HistoryData, error) { return f.history, f.err }

func fixtureExtractor(tree *platform.MemoryTree) func() (*telemetry.Extractor, error) {
	return func() (*telemetry.Extractor, error) {
		l, err := locator.New(locator.BuiltinPatternSets()[locator.DefaultPatternSet], "")
		if err != nil {
			return nil, err
		}
		return telemetry.NewExtractor(tree, l, telemetry.Options{}), nil
	}
}

func session(t *testing.T, opts Options) *mcpsdk.ClientSession {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(opts)

	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.RunTransport(ctx, serverT) }()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "printmon-test", Version: "0.1.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError || out == nil {
		return result
	}
	tc, ok := result.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
		t.Fatalf("CallTool(%s): decode %q: %v", name, tc.Text, err)
	}
	return result
}

func TestGetPrintStatus_FromDaemon(t *testing.T) {
	snap := &telemetry.Snapshot{Task: "Benchy", Percent: 57, Remaining: 45 * time.Minute, HasRemaining: true}
	d := &fakeDaemon{status: &ipc.StatusData{Monitor: monitor.Status{Available: true, Snapshot: snap}}}
	cs := session(t, Options{Daemon: d})

	var out PrintStatusOutput
	callTool(t, cs, "get_print_status", map[string]any{"fresh": true}, &out)
	if out.Source != "daemon" || !out.Available || out.Reading == nil {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Reading.Percent != 57 || out.Reading.RemainingSeconds != 2700 {
		t.Fatalf("reading = %+v", out.Reading)
	}
	if !d.polled {
		t.Fatal("fresh should ask the daemon to poll")
	}
}

func TestGetPrintStatus_FallsBackToDirectRead(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	cs := session(t, Options{
		Daemon:       &fakeDaemon{err: errors.New("connection refused")},
		NewExtractor: fixtureExtractor(fx.Tree),
	})

	var out PrintStatusOutput
	callTool(t, cs, "get_print_status", map[string]any{}, &out)
	if out.Source != "direct" || !out.Available || out.Reading.Task != "Benchy" || out.Reading.Percent != 57 {
		t.Fatalf("unexpected output %+v", out)
	}

	fx.Tree.Destroy(locatortest.Landmark)
	out = PrintStatusOutput{}
	callTool(t, cs, "get_print_status", map[string]any{}, &out)
	if out.Available || out.Stage != locator.StageLandmark || out.Error == "" {
		t.Fatalf("expected landmark failure, got %+v", out)
	}
}

func TestGetPrintStatus_NoDaemonNoTree(t *testing.T) {
	cs := session(t, Options{})
	res := callTool(t, cs, "get_print_status", map[string]any{}, nil)
	if !res.IsError {
		t.Fatal("expected a tool error")
	}
}

func TestLocateControls(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	cs := session(t, Options{NewExtractor: fixtureExtractor(fx.Tree)})

	var out LocateControlsOutput
	callTool(t, cs, "locate_controls", map[string]any{}, &out)
	if !out.Found || out.Anchor != uint64(locatortest.MainWindow) || out.Pattern != locator.DefaultPatternSet {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(out.Handles) != len(fx.Expected) {
		t.Fatalf("handles = %v", out.Handles)
	}
	for role, id := range fx.Expected {
		if out.Handles[string(role)] != uint64(id) {
			t.Errorf("%s = %d, want %d", role, out.Handles[string(role)], id)
		}
	}
}

func TestGetPrintHistory(t *testing.T) {
	box := "28 °C"
	d := &fakeDaemon{history: &ipc.HistoryData{Readings: []*telemetry.Snapshot{
		{Percent: 12, Box: &box, At: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{Percent: 11},
	}}}
	cs := session(t, Options{Daemon: d})

	var out PrintHistoryOutput
	callTool(t, cs, "get_print_history", map[string]any{"limit": 2}, &out)
	if len(out.Readings) != 2 || out.Readings[0].Percent != 12 || *out.Readings[0].Box != box {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Readings[0].At != "2024-05-01T10:00:00Z" || out.Readings[1].At != "" {
		t.Fatalf("timestamps = %q, %q", out.Readings[0].At, out.Readings[1].At)
	}

	cs = session(t, Options{})
	if res := callTool(t, cs, "get_print_history", map[string]any{}, nil); !res.IsError {
		t.Fatal("expected error without daemon")
	}
}

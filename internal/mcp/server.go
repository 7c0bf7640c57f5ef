// Package mcp exposes the print monitor to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/printmon/internal/ipc"
	"github.com/1broseidon/printmon/internal/telemetry"
)

const (
	ServerName    = "printmon"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	PollNow() (*ipc.StatusData, error)
	GetHistory(limit int) (*ipc.HistoryData, error)
}

// Options configure the server.
type Options struct {
	// Daemon, when set, is asked first; tools fall back to reading the
	// window tree directly when it cannot be reached.
	Daemon Daemon

	// NewExtractor builds the direct reader on first use.
	NewExtractor func() (*telemetry.Extractor, error)

	Logger *slog.Logger
}

// Server is the MCP server for print status.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger

	newExtractor func() (*telemetry.Extractor, error)
	mu           sync.Mutex
	extractor    *telemetry.Extractor
}

// NewServer creates a new MCP server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon:       opts.Daemon,
		logger:       logger,
		newExtractor: opts.NewExtractor,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// RunTransport serves on an arbitrary transport.
func (s *Server) RunTransport(ctx context.Context, t mcpsdk.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_print_status",
		Description: "Return the current 3D print status read from the Bambu Studio device page: task name, progress percent, layer, remaining time, ETA and temperatures. Uses the printmon daemon when it is running and reads the window tree directly otherwise. available=false means the slicer window or its device page is not showing.",
	}, s.handleGetPrintStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "locate_controls",
		Description: "Locate the Bambu Studio status controls in the window tree and return the window handle found for each role, or the stage at which locating failed. Useful for diagnosing why no print status is available.",
	}, s.handleLocateControls)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_print_history",
		Description: "Return recent distinct print readings recorded by the printmon daemon, newest first. Requires the daemon with history enabled.",
	}, s.handleGetPrintHistory)
}

// directExtractor returns the lazily built extractor.
func (s *Server) directExtractor() (*telemetry.Extractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extractor != nil {
		return s.extractor, nil
	}
	if s.newExtractor == nil {
		return nil, errNoDirectAccess
	}
	e, err := s.newExtractor()
	if err != nil {
		return nil, err
	}
	s.extractor = e
	return e, nil
}

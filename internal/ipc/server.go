package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/printmon/internal/config"
	"github.com/1broseidon/printmon/internal/monitor"
	"github.com/1broseidon/printmon/internal/runtimepath"
	"github.com/1broseidon/printmon/internal/telemetry"
)

// StatusSource is the monitor as seen by the server.
type StatusSource interface {
	Status() monitor.Status
	PollNow(ctx context.Context) monitor.Status
}

// HistorySource serves GET_HISTORY.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]*telemetry.Snapshot, error)
}

// ServerOptions configure a Server. Zero values use the runtime socket
// path, config.Load and slog.Default.
type ServerOptions struct {
	SocketPath string
	History    HistorySource
	LoadConfig func() (*config.Config, error)
	Logger     *slog.Logger
}

const maxHistoryLimit = 1000

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgMu        sync.RWMutex
	monitor      StatusSource
	history      HistorySource
	loadConfig   func() (*config.Config, error)
	logger       *slog.Logger
	startTime    time.Time
	reloadChan   chan<- *config.Config
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. Successful reloads are sent on
// reloadChan without blocking.
func NewServer(cfg *config.Config, mon StatusSource, reloadChan chan<- *config.Config, opts ServerOptions) (*Server, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = config.Load
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		monitor:    mon,
		history:    opts.History,
		loadConfig: loadConfig,
		logger:     logger,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.ok(s.statusData(s.monitor.Status()))
	case CommandGetSnapshot:
		return s.handleGetSnapshot()
	case CommandPollNow:
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.ok(s.statusData(s.monitor.PollNow(ctx)))
	case CommandGetHistory:
		return s.handleGetHistory(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")

	newCfg, err := s.loadConfig()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	if s.reloadChan != nil {
		select {
		case s.reloadChan <- newCfg:
		default:
		}
	}

	s.logger.Info("IPC: config reloaded")
	return s.ok(nil)
}

func (s *Server) statusData(st monitor.Status) StatusData {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return StatusData{
		DaemonRunning:  true,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		PatternSet:     s.cfg.PatternSet,
		PollIntervalMs: s.cfg.PollIntervalMs,
		Monitor:        st,
	}
}

func (s *Server) handleGetSnapshot() *Response {
	st := s.monitor.Status()
	if !st.Available || st.Snapshot == nil {
		msg := "print data unavailable"
		if st.LastError != "" {
			msg += ": " + st.LastError
		}
		return NewErrorResponse(msg)
	}
	return s.ok(st.Snapshot)
}

func (s *Server) handleGetHistory(payload json.RawMessage) *Response {
	if s.history == nil {
		return NewErrorResponse("history is disabled")
	}
	req := HistoryPayload{Limit: 20}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid history payload: %v", err))
		}
	}
	if req.Limit <= 0 || req.Limit > maxHistoryLimit {
		return NewErrorResponse(fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	readings, err := s.history.Recent(ctx, req.Limit)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read history: %v", err))
	}
	return s.ok(HistoryData{Readings: readings})
}

func (s *Server) ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}

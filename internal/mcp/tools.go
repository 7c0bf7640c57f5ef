package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/printmon/internal/locator"
)

var errNoDirectAccess = errors.New("no window tree access configured")

const defaultHistoryLimit = 20

func (s *Server) handleGetPrintStatus(_ context.Context, _ *mcpsdk.CallToolRequest, args GetPrintStatusInput) (*mcpsdk.CallToolResult, PrintStatusOutput, error) {
	if s.daemon != nil {
		get := s.daemon.GetStatus
		if args.Fresh {
			get = s.daemon.PollNow
		}
		st, err := get()
		if err == nil {
			return nil, PrintStatusOutput{
				Source:    "daemon",
				Available: st.Monitor.Available,
				Reading:   newReading(st.Monitor.Snapshot),
				Error:     st.Monitor.LastError,
				Stage:     st.Monitor.LastStage,
			}, nil
		}
		s.logger.Debug("daemon unreachable, reading directly", "error", err)
	}

	e, err := s.directExtractor()
	if err != nil {
		return nil, PrintStatusOutput{}, fmt.Errorf("daemon not running and direct read unavailable: %w", err)
	}
	out := PrintStatusOutput{Source: "direct"}
	snap, err := e.Poll()
	if err != nil {
		out.Error = err.Error()
		out.Stage = locator.StageOf(err)
		return nil, out, nil
	}
	out.Available = true
	out.Reading = newReading(snap)
	return nil, out, nil
}

func (s *Server) handleLocateControls(_ context.Context, _ *mcpsdk.CallToolRequest, _ LocateControlsInput) (*mcpsdk.CallToolResult, LocateControlsOutput, error) {
	e, err := s.directExtractor()
	if err != nil {
		return nil, LocateControlsOutput{}, fmt.Errorf("window tree unavailable: %w", err)
	}

	b, err := e.Locate()
	if err != nil {
		return nil, LocateControlsOutput{
			Error: err.Error(),
			Stage: locator.StageOf(err),
		}, nil
	}

	out := LocateControlsOutput{
		Found:   true,
		Pattern: b.Pattern(),
		Anchor:  uint64(b.Anchor()),
		Handles: make(map[string]uint64, len(locator.AllRoles)),
	}
	for role, id := range b.Map() {
		out.Handles[string(role)] = uint64(id)
	}
	return nil, out, nil
}

func (s *Server) handleGetPrintHistory(_ context.Context, _ *mcpsdk.CallToolRequest, args GetPrintHistoryInput) (*mcpsdk.CallToolResult, PrintHistoryOutput, error) {
	if s.daemon == nil {
		return nil, PrintHistoryOutput{}, errors.New("history requires the printmon daemon")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	data, err := s.daemon.GetHistory(limit)
	if err != nil {
		return nil, PrintHistoryOutput{}, err
	}
	out := PrintHistoryOutput{Readings: make([]*Reading, 0, len(data.Readings))}
	for _, snap := range data.Readings {
		out.Readings = append(out.Readings, newReading(snap))
	}
	return nil, out, nil
}

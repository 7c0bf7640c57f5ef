package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/printmon/internal/monitor"
	"github.com/1broseidon/printmon/internal/telemetry"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetSnapshot CommandType = "GET_SNAPSHOT"
	CommandPollNow     CommandType = "POLL_NOW"
	CommandGetHistory  CommandType = "GET_HISTORY"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS and POLL_NOW
type StatusData struct {
	DaemonRunning  bool           `json:"daemon_running"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	PatternSet     string         `json:"pattern_set"`
	PollIntervalMs int            `json:"poll_interval_ms"`
	Monitor        monitor.Status `json:"monitor"`
}

// HistoryPayload is the payload for GET_HISTORY.
type HistoryPayload struct {
	Limit int `json:"limit"`
}

// HistoryData is returned by GET_HISTORY, newest reading first.
type HistoryData struct {
	Readings []*telemetry.Snapshot `json:"readings"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

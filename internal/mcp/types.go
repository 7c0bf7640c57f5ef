package mcp

import (
	"time"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/telemetry"
)

// Reading is a snapshot flattened to JSON-schema friendly fields.
type Reading struct {
	Task             string  `json:"task"`
	Mass             string  `json:"mass"`
	TotalTime        string  `json:"total_time"`
	RemainingTime    string  `json:"remaining_time"`
	RemainingSeconds int64   `json:"remaining_seconds,omitempty"`
	ETA              string  `json:"eta,omitempty"`
	Layer            string  `json:"layer"`
	Percent          int     `json:"percent"`
	Hotend           string  `json:"hotend"`
	Hotbed           string  `json:"hotbed"`
	Box              *string `json:"box,omitempty"`
	Pattern          string  `json:"pattern"`
	At               string  `json:"at"`
}

func newReading(s *telemetry.Snapshot) *Reading {
	if s == nil {
		return nil
	}
	r := &Reading{
		Task:          s.Task,
		Mass:          s.Mass,
		TotalTime:     s.TotalTime,
		RemainingTime: s.RemainingTime,
		ETA:           s.ETA,
		Layer:         s.Layer,
		Percent:       s.Percent,
		Hotend:        s.Hotend,
		Hotbed:        s.Hotbed,
		Box:           s.Box,
		Pattern:       s.Pattern,
	}
	if s.HasRemaining {
		r.RemainingSeconds = int64(s.Remaining / time.Second)
	}
	if !s.At.IsZero() {
		r.At = s.At.Format(time.RFC3339)
	}
	return r
}

// GetPrintStatusInput is the input for the get_print_status tool.
type GetPrintStatusInput struct {
	Fresh bool `json:"fresh,omitempty" jsonschema:"When true, ask the daemon to poll now instead of returning its last reading"`
}

// PrintStatusOutput is the output for the get_print_status tool.
type PrintStatusOutput struct {
	Source    string        `json:"source"` // "daemon" or "direct"
	Available bool          `json:"available"`
	Reading   *Reading      `json:"reading,omitempty"`
	Error     string        `json:"error,omitempty"`
	Stage     locator.Stage `json:"stage,omitempty"`
}

// LocateControlsInput is the input for the locate_controls tool.
type LocateControlsInput struct{}

// LocateControlsOutput is the output for the locate_controls tool.
type LocateControlsOutput struct {
	Found   bool              `json:"found"`
	Pattern string            `json:"pattern,omitempty"`
	Anchor  uint64            `json:"anchor,omitempty"`
	Handles map[string]uint64 `json:"handles,omitempty"`
	Error   string            `json:"error,omitempty"`
	Stage   locator.Stage     `json:"stage,omitempty"`
}

// GetPrintHistoryInput is the input for the get_print_history tool.
type GetPrintHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Number of readings to return, newest first (default: 20)"`
}

// PrintHistoryOutput is the output for the get_print_history tool.
type PrintHistoryOutput struct {
	Readings []*Reading `json:"readings"`
}

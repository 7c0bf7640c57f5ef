// Package telemetry turns a located handle bundle into a typed print status.
package telemetry

import "time"

// Snapshot is one poll's worth of printer status read from the slicer UI.
type Snapshot struct {
	Task          string  `json:"task"`
	Mass          string  `json:"mass"`
	TotalTime     string  `json:"total_time"`
	RemainingTime string  `json:"remaining_time"`
	Layer         string  `json:"layer"`
	Percent       int     `json:"percent"`
	Hotend        string  `json:"hotend"`
	Hotbed        string  `json:"hotbed"`
	Box           *string `json:"box,omitempty"`

	// Remaining is RemainingTime parsed best-effort; HasRemaining reports
	// whether parsing succeeded.
	Remaining    time.Duration `json:"remaining_ns,omitempty"`
	HasRemaining bool          `json:"has_remaining"`
	ETA          string        `json:"eta,omitempty"`

	Pattern string    `json:"pattern"`
	At      time.Time `json:"at"`
}

// BoxText returns the enclosure temperature or "" when there is none.
func (s *Snapshot) BoxText() string {
	if s == nil || s.Box == nil {
		return ""
	}
	return *s.Box
}

// SameReading reports whether two snapshots show the same values. The poll
// time and the derived ETA are ignored.
func (s *Snapshot) SameReading(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if (s.Box == nil) != (o.Box == nil) || s.BoxText() != o.BoxText() {
		return false
	}
	return s.Task == o.Task &&
		s.Mass == o.Mass &&
		s.TotalTime == o.TotalTime &&
		s.RemainingTime == o.RemainingTime &&
		s.Layer == o.Layer &&
		s.Percent == o.Percent &&
		s.Hotend == o.Hotend &&
		s.Hotbed == o.Hotbed
}

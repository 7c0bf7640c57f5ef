// Package monitor polls the slicer on a fixed interval and keeps the latest
// print status for the daemon's clients.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/telemetry"
)

// Poller reads one snapshot. telemetry.Extractor implements it.
type Poller interface {
	Poll() (*telemetry.Snapshot, error)
}

// Recorder stores snapshots whose reading changed.
type Recorder interface {
	Record(ctx context.Context, snap *telemetry.Snapshot) error
}

// Config holds configuration for the monitor.
type Config struct {
	Interval time.Duration
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Status is the monitor's view of the printer after the latest poll.
type Status struct {
	Available bool                `json:"available"`
	Snapshot  *telemetry.Snapshot `json:"snapshot,omitempty"`
	LastError string              `json:"last_error,omitempty"`
	LastStage locator.Stage       `json:"last_stage,omitempty"`
	Polls     uint64              `json:"polls"`
	Failures  uint64              `json:"failures"`
	Since     time.Time           `json:"since"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Monitor periodically polls and tracks availability. Polls never overlap.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	pollMu sync.Mutex

	mu       sync.RWMutex
	poller   Poller
	status   Status
	seen     bool
	recorded *telemetry.Snapshot
}

// New creates a monitor polling p.
func New(cfg Config, p Poller) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		interval: interval,
		logger:   logger,
		recorder: cfg.Recorder,
		now:      now,
		poller:   p,
	}
}

// Run polls immediately and then on every tick. Blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", "interval", m.interval)
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// PollNow performs a poll outside the ticker and returns the new status.
func (m *Monitor) PollNow(ctx context.Context) Status {
	m.poll(ctx)
	return m.Status()
}

// Status returns the latest status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// SetPoller swaps the poller, e.g. after a config reload. The cached
// availability is kept until the next poll.
func (m *Monitor) SetPoller(p Poller) {
	m.mu.Lock()
	m.poller = p
	m.mu.Unlock()
}

func (m *Monitor) poll(ctx context.Context) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	m.mu.RLock()
	p := m.poller
	m.mu.RUnlock()

	snap, err := m.safePoll(p)
	if err != nil {
		m.fail(err)
		return
	}
	m.succeed(ctx, snap)
}

// safePoll recovers from panics to prevent crashing the daemon.
func (m *Monitor) safePoll(p Poller) (snap *telemetry.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor panic recovered", "error", r)
			snap, err = nil, fmt.Errorf("poll panicked: %v", r)
		}
	}()
	if p == nil {
		return nil, fmt.Errorf("no poller configured")
	}
	return p.Poll()
}

func (m *Monitor) fail(err error) {
	now := m.now()
	stage := locator.StageOf(err)

	m.mu.Lock()
	wasAvailable, first := m.status.Available, !m.seen
	sameError := m.status.LastError == err.Error()
	m.seen = true
	m.status.Polls++
	m.status.Failures++
	m.status.Available = false
	m.status.Snapshot = nil
	m.status.LastError = err.Error()
	m.status.LastStage = stage
	m.status.UpdatedAt = now
	if wasAvailable || first {
		m.status.Since = now
	}
	m.mu.Unlock()

	switch {
	case wasAvailable:
		m.logger.Warn("print data unavailable", "stage", stage, "error", err)
	case first || !sameError:
		m.logger.Info("print data not found", "stage", stage, "error", err)
	default:
		m.logger.Debug("print data still unavailable", "stage", stage)
	}
}

func (m *Monitor) succeed(ctx context.Context, snap *telemetry.Snapshot) {
	now := m.now()

	m.mu.Lock()
	wasAvailable := m.status.Available
	m.seen = true
	m.status.Polls++
	m.status.Available = true
	m.status.Snapshot = snap
	m.status.LastError = ""
	m.status.LastStage = ""
	m.status.UpdatedAt = now
	if !wasAvailable {
		m.status.Since = now
	}
	changed := !snap.SameReading(m.recorded)
	if changed {
		m.recorded = snap
	}
	m.mu.Unlock()

	if !wasAvailable {
		m.logger.Info("print data available",
			"pattern", snap.Pattern,
			"task", snap.Task,
			"percent", snap.Percent)
	}
	if changed && m.recorder != nil {
		if err := m.recorder.Record(ctx, snap); err != nil {
			m.logger.Warn("failed to record snapshot", "error", err)
		}
	}
}

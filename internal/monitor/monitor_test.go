package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/locator/locatortest"
	"github.com/1broseidon/printmon/internal/telemetry"
)

type result struct {
	snap  *telemetry.Snapshot
	err   error
	panic any
}

type scriptedPoller struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (p *scriptedPoller) Poll() (*telemetry.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.results[p.calls%len(p.results)]
	p.calls++
	if r.panic != nil {
		panic(r.panic)
	}
	return r.snap, r.err
}

type memRecorder struct {
	snaps []*telemetry.Snapshot
	err   error
}

func (r *memRecorder) Record(_ context.Context, s *telemetry.Snapshot) error {
	r.snaps = append(r.snaps, s)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestMonitor_TracksAvailabilityTransitions(t *testing.T) {
	snap := &telemetry.Snapshot{Task: "Benchy", Percent: 10}
	notFound := &locator.LocateError{Kind: locator.ErrAnchorNotFound, Stage: locator.StageAnchor}
	p := &scriptedPoller{results: []result{
		{err: notFound},
		{err: notFound},
		{snap: snap},
		{snap: snap},
		{err: notFound},
	}}
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := New(Config{Logger: quietLogger(), Now: clock.now}, p)
	ctx := context.Background()

	st := m.PollNow(ctx)
	if st.Available || st.LastStage != locator.StageAnchor || st.Failures != 1 {
		t.Fatalf("unexpected first status %+v", st)
	}
	firstSince := st.Since

	st = m.PollNow(ctx)
	if st.Since != firstSince {
		t.Fatalf("Since must not move while still unavailable")
	}

	st = m.PollNow(ctx)
	if !st.Available || st.Snapshot != snap || st.LastError != "" || st.LastStage != "" {
		t.Fatalf("unexpected available status %+v", st)
	}
	availableSince := st.Since
	if !availableSince.After(firstSince) {
		t.Fatalf("Since should move on becoming available")
	}

	st = m.PollNow(ctx)
	if st.Since != availableSince || st.Polls != 4 {
		t.Fatalf("unexpected steady status %+v", st)
	}

	st = m.PollNow(ctx)
	if st.Available || st.Snapshot != nil || st.Failures != 3 || st.Polls != 5 {
		t.Fatalf("unexpected status after loss %+v", st)
	}
	if !errors.Is(notFound, locator.ErrAnchorNotFound) || st.LastError != notFound.Error() {
		t.Fatalf("LastError = %q", st.LastError)
	}
}

func TestMonitor_RecoversFromPanics(t *testing.T) {
	p := &scriptedPoller{results: []result{{panic: "boom"}}}
	m := New(Config{Logger: quietLogger()}, p)

	st := m.PollNow(context.Background())
	if st.Available || st.Failures != 1 || st.LastError == "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestMonitor_RecordsOnlyChangedReadings(t *testing.T) {
	a := &telemetry.Snapshot{Task: "Benchy", Percent: 10}
	a2 := &telemetry.Snapshot{Task: "Benchy", Percent: 10, At: time.Now()}
	b := &telemetry.Snapshot{Task: "Benchy", Percent: 11}
	p := &scriptedPoller{results: []result{{snap: a}, {snap: a2}, {snap: b}}}
	rec := &memRecorder{err: errors.New("disk full")}
	m := New(Config{Logger: quietLogger(), Recorder: rec}, p)

	for i := 0; i < 3; i++ {
		m.PollNow(context.Background())
	}
	if len(rec.snaps) != 2 || rec.snaps[0] != a || rec.snaps[1] != b {
		t.Fatalf("recorded %v", rec.snaps)
	}
}

func TestMonitor_SetPollerAndNilPoller(t *testing.T) {
	m := New(Config{Logger: quietLogger()}, nil)
	if st := m.PollNow(context.Background()); st.Available || st.LastError == "" {
		t.Fatalf("nil poller should fail, got %+v", st)
	}

	m.SetPoller(&scriptedPoller{results: []result{{snap: &telemetry.Snapshot{}}}})
	if st := m.PollNow(context.Background()); !st.Available {
		t.Fatalf("expected available after SetPoller, got %+v", st)
	}
}

func TestMonitor_RunPollsUntilCancelled(t *testing.T) {
	fx := locatortest.Bambu(locatortest.Defaults())
	l, err := locator.New(locator.BuiltinPatternSets()[locator.DefaultPatternSet], "")
	if err != nil {
		t.Fatalf("locator.New: %v", err)
	}
	m := New(Config{Interval: 5 * time.Millisecond, Logger: quietLogger()},
		telemetry.NewExtractor(fx.Tree, l, telemetry.Options{UseCache: true}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for m.Status().Polls < 3 {
		select {
		case <-deadline:
			t.Fatalf("monitor did not poll, status %+v", m.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	st := m.Status()
	if !st.Available || st.Snapshot == nil || st.Snapshot.Percent != 57 {
		t.Fatalf("unexpected status %+v", st)
	}
}

package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"power_alert/internal/model"
)

type mockPoller struct {
	mu    sync.Mutex
	times []time.Time
	clock *fakeClock
}

func (m *mockPoller) Poll(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times = append(m.times, m.clock.Now())
}

func (m *mockPoller) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.times)
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

var eat = time.FixedZone("UTC+3", 3*60*60)

func newTestScheduler(start time.Time) (*Scheduler, *mockPoller, *fakeClock) {
	clock := &fakeClock{now: start}
	p := &mockPoller{clock: clock}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(p, model.PollWindow{StartHour: 19, EndHour: 21, Location: eat}, 15*time.Minute, 5*time.Minute, log)
	s.now = clock.Now
	s.sleep = clock.Sleep
	return s, p, clock
}

func TestState(t *testing.T) {
	s, _, _ := newTestScheduler(time.Time{})

	tests := []struct {
		name string
		at   time.Time
		want model.WindowState
	}{
		{name: "20:00 is active", at: time.Date(2024, 5, 1, 20, 0, 0, 0, eat), want: model.StateActive},
		{name: "21:00 is idle", at: time.Date(2024, 5, 1, 21, 0, 0, 0, eat), want: model.StateIdle},
		{name: "18:59 is idle", at: time.Date(2024, 5, 1, 18, 59, 0, 0, eat), want: model.StateIdle},
		{name: "19:00 is active", at: time.Date(2024, 5, 1, 19, 0, 0, 0, eat), want: model.StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, s.State(tt.at)); diff != "" {
				t.Errorf("State() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStepActivePollsThenSleepsActiveInterval(t *testing.T) {
	s, p, clock := newTestScheduler(time.Date(2024, 5, 1, 20, 0, 0, 0, eat))

	got := s.step(context.Background())

	if diff := cmp.Diff(model.StateActive, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, p.count()); diff != "" {
		t.Errorf("poll count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{15 * time.Minute}, clock.sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestStepIdleSleepsWithoutPolling(t *testing.T) {
	s, p, clock := newTestScheduler(time.Date(2024, 5, 1, 18, 59, 0, 0, eat))

	got := s.step(context.Background())

	if diff := cmp.Diff(model.StateIdle, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, p.count()); diff != "" {
		t.Errorf("poll count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{5 * time.Minute}, clock.sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestStepsAcrossEvening(t *testing.T) {
	s, p, _ := newTestScheduler(time.Date(2024, 5, 1, 18, 50, 0, 0, eat))
	ctx := context.Background()

	// 18:50 idle, 18:55 idle, 19:00..20:45 eight polls, 21:00 idle.
	for range 11 {
		s.step(ctx)
	}

	var got []string
	for _, at := range p.times {
		got = append(got, at.In(eat).Format("15:04"))
	}
	want := []string{"19:00", "19:15", "19:30", "19:45", "20:00", "20:15", "20:30", "20:45"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("poll times mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := &mockPoller{clock: &fakeClock{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(p, model.PollWindow{StartHour: 0, EndHour: 23, Location: time.UTC}, 10*time.Millisecond, 10*time.Millisecond, log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

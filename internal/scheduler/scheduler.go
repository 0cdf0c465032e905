// Package scheduler gates polling to a daily time window.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"power_alert/internal/model"
)

// Poller runs one poll cycle.
type Poller interface {
	Poll(ctx context.Context)
}

// Scheduler polls once per active interval inside the window and idles outside it.
type Scheduler struct {
	poller   Poller
	window   model.PollWindow
	active   time.Duration
	idle     time.Duration
	log      *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration)
	previous model.WindowState
}

// New creates a Scheduler. active is the pause after each poll, idle the
// pause between window checks outside the window.
func New(p Poller, window model.PollWindow, active, idle time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		poller: p,
		window: window,
		active: active,
		idle:   idle,
		log:    log,
		now:    time.Now,
		sleep:  sleep,
	}
}

// State returns the scheduler state at t.
func (s *Scheduler) State(t time.Time) model.WindowState {
	return s.window.State(t)
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		s.step(ctx)
	}
}

func (s *Scheduler) step(ctx context.Context) model.WindowState {
	now := s.now()
	state := s.State(now)
	if state != s.previous {
		s.log.Info("window state", "state", state, "local_time", now.In(s.location()).Format("15:04"))
		s.previous = state
	}

	switch state {
	case model.StateActive:
		s.log.Info("running monitor")
		s.poller.Poll(ctx)
		s.sleep(ctx, s.active)
	default:
		s.log.Debug("outside monitoring window, waiting", "wait", s.idle)
		s.sleep(ctx, s.idle)
	}
	return state
}

func (s *Scheduler) location() *time.Location {
	if s.window.Location != nil {
		return s.window.Location
	}
	return time.Local
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Package scheduler fires the daily improvement run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is the work done once per day.
type Task func(ctx context.Context, now time.Time) error

// Scheduler runs a Task at a fixed local time, at most once per calendar day.
type Scheduler struct {
	hour, minute int
	task         Task
	logger       *slog.Logger
	loc          *time.Location
	now          func() time.Time

	lastRun time.Time

	mu      sync.Mutex
	lastDay string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLastRun seeds the once-per-day guard, e.g. from the activity log.
func WithLastRun(t time.Time) Option {
	return func(s *Scheduler) { s.lastRun = t }
}

// WithLocation sets the time zone HH:MM is interpreted in (default local).
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// New returns a scheduler firing task daily at "HH:MM".
func New(at string, task Task, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	hour, minute, err := ParseTime(at)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		hour:   hour,
		minute: minute,
		task:   task,
		logger: logger,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.lastRun.IsZero() {
		s.lastDay = s.lastRun.In(s.loc).Format(time.DateOnly)
	}
	return s, nil
}

// ParseTime parses a 24-hour "HH:MM" clock time.
func ParseTime(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q, want HH:MM", at)
	}
	return t.Hour(), t.Minute(), nil
}

// Spec returns the cron expression for the configured time.
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("%d %d * * *", s.minute, s.hour)
}

// Run blocks until ctx is cancelled. A run missed earlier today is caught up
// immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.Spec(), func() { s.Fire(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	c.Start()
	s.logger.Info("scheduler: started", slog.String("spec", s.Spec()))

	if s.due(s.now()) {
		s.Fire(ctx)
	}

	<-ctx.Done()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("scheduler: stop timeout waiting for running job")
	}
	s.logger.Info("scheduler: stopped")
	return nil
}

// due reports whether today's time has passed without a run.
func (s *Scheduler) due(now time.Time) bool {
	now = now.In(s.loc)
	at := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if now.Before(at) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDay != now.Format(time.DateOnly)
}

// Fire runs the task unless it already ran today. It reports whether the
// task ran.
func (s *Scheduler) Fire(ctx context.Context) bool {
	now := s.now().In(s.loc)
	day := now.Format(time.DateOnly)

	s.mu.Lock()
	if s.lastDay == day {
		s.mu.Unlock()
		s.logger.Debug("scheduler: already ran today", slog.String("day", day))
		return false
	}
	s.lastDay = day
	s.mu.Unlock()

	if err := s.task(ctx, now); err != nil {
		s.logger.Error("scheduler: daily run failed", slog.String("day", day), slog.String("error", err.Error()))
		return true
	}
	s.logger.Info("scheduler: daily run complete", slog.String("day", day))
	return true
}

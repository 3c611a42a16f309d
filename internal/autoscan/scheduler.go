// Package autoscan runs a job on a cron schedule.
package autoscan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule is 03:00 every day.
const DefaultSchedule = "0 3 * * *"

// Job is one scheduled run. An error is logged; the schedule keeps going.
type Job func(ctx context.Context) error

//nolint:gochecknoglobals // stateless parser shared by Parse and New.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse checks a five-field cron expression or a descriptor such as @daily.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler runs its job at every activation of the schedule. Runs never
// overlap: activations that pass while a run is still busy are skipped.
type Scheduler struct {
	expr     string
	schedule cron.Schedule
	job      Job

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	next    time.Time
	lastRun time.Time
	runs    int
	failed  int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// New parses expr and returns a scheduler for job.
func New(expr string, job Job, opts ...Option) (*Scheduler, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		expr:     expr,
		schedule: sched,
		job:      job,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stats reports the scheduler's progress.
type Stats struct {
	Schedule string
	Next     time.Time
	LastRun  time.Time
	Runs     int
	Failed   int
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Schedule: s.expr, Next: s.next, LastRun: s.lastRun, Runs: s.runs, Failed: s.failed}
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx ends, running the job at each activation.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("schedule %q has no future activation", s.expr)
		}
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()
		logrus.WithField("next", next.Format(time.RFC3339)).Debug("autoscan: waiting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(now)):
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := s.now()
	err := s.job(ctx)

	s.mu.Lock()
	s.lastRun = started
	s.runs++
	if err != nil {
		s.failed++
	}
	s.mu.Unlock()

	if err != nil {
		logrus.WithError(err).Warn("autoscan: run failed")
		return
	}
	logrus.Debugf("autoscan: run finished in %s", s.now().Sub(started).Truncate(time.Millisecond))
}

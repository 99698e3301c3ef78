// Package scheduler runs the weekly weekend rollover.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"cricketpay/internal/log"
)

// Trigger labels for advances started by the roller.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// Roller advances every ledger whose weekend is over.
type Roller interface {
	ProcessDue(ctx context.Context, now time.Time, trigger string) (int, error)
}

type Scheduler struct {
	s      gocron.Scheduler
	job    gocron.Job
	roller Roller
	loc    *time.Location
}

// NewScheduler creates a scheduler whose wall clock is loc.
func NewScheduler(roller Roller, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{s: s, roller: roller, loc: loc}, nil
}

// Start registers the Monday 06:00 rollover and starts the scheduler. ctx
// is handed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	job, err := s.s.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(6, 0, 0))),
		gocron.NewTask(s.roll, ctx, TriggerSchedule),
		gocron.WithName("weekend-rollover"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create weekend rollover job: %w", err)
	}
	s.job = job
	s.s.Start()

	if next, err := job.NextRun(); err == nil {
		slog.InfoContext(ctx, "Weekend rollover scheduled",
			log.FieldComponent, log.ComponentScheduler,
			"next_run", next.In(s.loc).Format(time.RFC3339))
	}
	return nil
}

// RunNow performs one rollover pass immediately, used at startup so a
// roller that was down over Monday morning catches up.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.roller.ProcessDue(ctx, time.Now().In(s.loc), TriggerStartup)
}

// NextRun reports when the rollover job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	if s.job == nil {
		return time.Time{}, fmt.Errorf("scheduler not started")
	}
	return s.job.NextRun()
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) roll(ctx context.Context, trigger string) {
	n, err := s.roller.ProcessDue(ctx, time.Now().In(s.loc), trigger)
	if err != nil {
		slog.ErrorContext(ctx, "Weekend rollover failed",
			log.FieldComponent, log.ComponentScheduler,
			log.FieldError, err)
		return
	}
	slog.InfoContext(ctx, "Weekend rollover ran",
		log.FieldComponent, log.ComponentScheduler,
		log.FieldTrigger, trigger,
		"rolled", n)
}

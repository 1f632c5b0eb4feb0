// Package schedule runs builds periodically on a cron expression or a fixed
// interval.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

// Task is one scheduled unit of work. Errors are logged, never returned to
// the scheduler.
type Task func(ctx context.Context) error

// Scheduler wraps gocron scheduler for managing periodic builds.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleCron runs task on a standard five-field cron expression.
// Returns the job ID for later management.
func (s *Scheduler) ScheduleCron(ctx context.Context, name, expr string, task Task) (string, error) {
	return s.schedule(ctx, name, gocron.CronJob(expr, false), task)
}

// ScheduleEvery runs task at a fixed interval.
func (s *Scheduler) ScheduleEvery(ctx context.Context, name string, interval time.Duration, task Task) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.schedule(ctx, name, gocron.DurationJob(interval), task)
}

// A tick firing while the previous run is still in progress is skipped.
func (s *Scheduler) schedule(ctx context.Context, name string, def gocron.JobDefinition, task Task) (string, error) {
	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(func() { s.execute(ctx, name, task) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create scheduled job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// execute is called by gocron for each tick.
func (s *Scheduler) execute(ctx context.Context, name string, task Task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.logger.Info("Executing scheduled build", logfields.Job(name))
	if err := task(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("Scheduled build failed",
			logfields.Job(name),
			logfields.Error(err))
		return
	}
	s.logger.Info("Scheduled build completed",
		logfields.Job(name),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// NextRun returns the next run time of the job with the given ID.
func (s *Scheduler) NextRun(id string) (time.Time, error) {
	for _, j := range s.scheduler.Jobs() {
		if j.ID().String() == id {
			return j.NextRun()
		}
	}
	return time.Time{}, fmt.Errorf("no scheduled job %s", id)
}

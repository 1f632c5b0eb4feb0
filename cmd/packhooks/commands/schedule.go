package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/packhooks/internal/build"
	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	BuildFlags `embed:""`

	Cron  string        `help:"Five-field cron expression (overrides schedule.cron)"`
	Every time.Duration `help:"Fixed interval between builds (overrides schedule.interval)"`
	Now   bool          `help:"Run one build immediately before the first tick"`
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if s.Cron == "" && s.Every == 0 {
		s.Cron = cfg.Schedule.Cron
		if cfg.Schedule.Interval != "" {
			// Validated when the configuration was loaded.
			s.Every, _ = time.ParseDuration(cfg.Schedule.Interval)
		}
	}
	if s.Cron == "" && s.Every == 0 {
		return perrors.ConfigRequired("schedule.cron")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := newRunner(cfg, g, s.BuildFlags)
	stop, err := r.serveMetrics(ctx)
	if err != nil {
		return err
	}
	defer stop()

	sched, err := schedule.NewScheduler(g.Logger)
	if err != nil {
		return perrors.InternalError("create scheduler", err)
	}
	id, err := scheduleBuilds(ctx, sched, r, s.Cron, s.Every)
	if err != nil {
		return err
	}

	if s.Now {
		_ = buildTask(r)(ctx)
	}
	sched.Start()
	if next, err := sched.NextRun(id); err == nil {
		fmt.Fprintf(g.Out, "next build at %s\n", next.Format(time.RFC3339))
	}

	<-ctx.Done()
	return sched.Stop()
}

// scheduleBuilds registers the periodic build on sched.
func scheduleBuilds(ctx context.Context, sched *schedule.Scheduler, r *runner, cron string, every time.Duration) (string, error) {
	var (
		id  string
		err error
	)
	switch {
	case cron != "" && every != 0:
		return "", perrors.ConfigInvalid("schedule", "cron and interval are mutually exclusive")
	case cron != "":
		id, err = sched.ScheduleCron(ctx, "packhooks-build", cron, buildTask(r))
	default:
		id, err = sched.ScheduleEvery(ctx, "packhooks-build", every, buildTask(r))
	}
	if err != nil {
		return "", perrors.ConfigInvalid("schedule", err.Error())
	}
	return id, nil
}

func buildTask(r *runner) schedule.Task {
	return func(ctx context.Context) error {
		res, err := r.run(ctx, build.ModeBuild)
		printSummary(r.global.Out, res, err)
		return err
	}
}

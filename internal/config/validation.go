package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

// Validate checks the configuration and joins every problem found.
func (c *Config) Validate() error {
	var errs []error
	if _, err := packager.ParseBundleFormat(c.Project.Bundle); err != nil {
		errs = append(errs, perrors.ConfigInvalid("project.bundle", err.Error()))
	}
	for i, name := range c.Tasks.Config {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, perrors.ConfigInvalid(fmt.Sprintf("tasks.config[%d]", i), "provider name is empty"))
		}
	}
	seen := map[string]bool{}
	for i, job := range c.Tasks.Jobs {
		switch {
		case strings.TrimSpace(job) == "":
			errs = append(errs, perrors.ConfigInvalid(fmt.Sprintf("tasks.jobs[%d]", i), "job type is empty"))
		case seen[job]:
			errs = append(errs, perrors.ConfigInvalid(fmt.Sprintf("tasks.jobs[%d]", i), "job "+job+" listed twice"))
		}
		seen[job] = true
	}
	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			errs = append(errs, perrors.ConfigInvalid("metrics.listen", err.Error()))
		}
	}
	if err := c.Schedule.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s ScheduleConfig) validate() error {
	if s.Cron != "" && s.Interval != "" {
		return perrors.ConfigInvalid("schedule", "cron and interval are mutually exclusive")
	}
	if s.Cron != "" {
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			return perrors.ConfigInvalid("schedule.cron", err.Error())
		}
	}
	if s.Interval != "" {
		d, err := time.ParseDuration(s.Interval)
		if err != nil {
			return perrors.ConfigInvalid("schedule.interval", err.Error())
		}
		if d < time.Second {
			return perrors.ConfigInvalid("schedule.interval", "interval must be at least 1s")
		}
	}
	return nil
}

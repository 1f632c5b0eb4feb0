package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/metrics"
	"git.home.luguber.info/inful/packhooks/internal/observability"
	"git.home.luguber.info/inful/packhooks/internal/validation"
)

// DefaultBuildService is the standard implementation of BuildService.
// It orchestrates the full pipeline: registry -> validation -> composition -> host.
type DefaultBuildService struct {
	host      Host
	jobs      *hooks.JobTable
	validator *validation.Validator
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewBuildService creates a service driving host.
func NewBuildService(host Host) *DefaultBuildService {
	return &DefaultBuildService{
		host:     host,
		jobs:     hooks.DefaultJobTable(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithJobTable resolves job handles in t instead of the default table.
func (s *DefaultBuildService) WithJobTable(t *hooks.JobTable) *DefaultBuildService {
	s.jobs = t
	return s
}

// WithValidator replaces the validator built from the request's root.
func (s *DefaultBuildService) WithValidator(v *validation.Validator) *DefaultBuildService {
	s.validator = v
	return s
}

// WithRecorder sets the metrics recorder used for handler and validation metrics.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithLogger sets the base logger.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	if l != nil {
		s.logger = l
	}
	return s
}

// Run executes the complete hooked pipeline. Configuration and validation
// errors are returned before the host runs a single stage.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = ModeBuild
	}
	global := newGlobal(req.Global, mode)

	result := &BuildResult{Mode: mode, BuildID: global.BuildID, StartTime: start}
	finish := func(err error) (*BuildResult, error) {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		switch {
		case err == nil:
			result.Status = BuildStatusSuccess
		case errors.Is(err, context.Canceled):
			result.Status = BuildStatusCancelled
		default:
			result.Status = BuildStatusFailed
		}
		return result, err
	}

	ctx = observability.WithBuildID(ctx, global.BuildID)
	ctx = observability.WithMode(ctx, string(mode))
	log := observability.Logger(ctx, s.logger)
	if global.Logger == nil {
		global.Logger = log
	}

	registry, err := hooks.Assemble(ctx, global, req.Providers, req.Jobs, hooks.WithJobTable(s.jobs))
	if err != nil {
		observability.ErrorContext(ctx, "Hook registration failed", logfields.Error(err))
		return finish(err)
	}
	result.Selectors = registry.Selectors()
	result.SelfManagedWatch = registry.HasSelfManagedWatch()

	validator := s.validator
	if validator == nil {
		validator = validation.New(global.Root)
		validator.Recorder = s.recorder
		validator.Logger = log
	}
	jobArgs, err := validator.ValidateJobs(ctx, registry.Jobs(), req.Data)
	if err != nil {
		observability.ErrorContext(ctx, "Task configuration is invalid", logfields.Error(err))
		return finish(err)
	}

	merged := registry.MergedHooks()
	for _, stage := range hooks.Stages() {
		if phases, ok := merged[stage]; ok && !phases.Empty() {
			result.HookedStages = append(result.HookedStages, stage)
		}
	}
	composed := hooks.ComposeAll(merged, s.host.Transforms(),
		func(stage hooks.Stage) hooks.ContextFactory {
			return hooks.NewContextFactory(stage, global, jobArgs)
		},
		hooks.WithRecorder(s.recorder),
		hooks.WithLogger(log))

	observability.InfoContext(ctx, "Running hooked pipeline",
		logfields.Count(len(result.Selectors)),
		slog.Int("hooked_stages", len(result.HookedStages)))

	err = WithComposedPipeline(ctx, s.host, composed, func(ctx context.Context) error {
		if mode != ModeWatch {
			return s.host.Build(ctx)
		}
		if result.SelfManagedWatch {
			return s.host.Build(ctx)
		}
		return s.host.Watch(ctx)
	})
	if err != nil {
		return finish(err)
	}

	if mode == ModeWatch && result.SelfManagedWatch {
		observability.InfoContext(ctx, "A job manages its own watch; waiting for shutdown")
		<-ctx.Done()
	}
	return finish(nil)
}

// newGlobal copies the caller's configuration so Run never mutates it.
func newGlobal(src *hooks.GlobalContext, mode Mode) *hooks.GlobalContext {
	g := &hooks.GlobalContext{Watch: mode == ModeWatch}
	if src == nil {
		return g
	}
	g.Logger = src.Logger
	g.Root = src.Root
	g.ProjectRoot = src.ProjectRoot
	g.SourceRoot = src.SourceRoot
	g.BuildID = src.BuildID
	g.Options = src.Options
	g.TaskArgs = src.TaskArgs
	return g
}

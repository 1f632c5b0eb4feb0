package hooks

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/metrics"
)

// Transform is a stage implementation over the graph.
type Transform func(ctx context.Context, g *graph.Graph) (*graph.Graph, error)

// TransformSet holds one transform per stage.
type TransformSet map[Stage]Transform

// Clone returns a shallow copy.
func (ts TransformSet) Clone() TransformSet { return maps.Clone(ts) }

// ContextFactory builds the task context for a handler invoked over g.
type ContextFactory func(g *graph.Graph) *TaskContext

// NewContextFactory returns a factory for stage that resolves the current entry
// on every call.
func NewContextFactory(stage Stage, global *GlobalContext, jobArgs map[string]any) ContextFactory {
	return func(g *graph.Graph) *TaskContext {
		return NewTaskContext(stage, global, g, jobArgs)
	}
}

type composeConfig struct {
	recorder metrics.Recorder
	logger   *slog.Logger
}

// ComposeOption configures Compose and ComposeAll.
type ComposeOption func(*composeConfig)

// WithRecorder records handler timings and results.
func WithRecorder(r metrics.Recorder) ComposeOption {
	return func(c *composeConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger used for step tracing.
func WithLogger(l *slog.Logger) ComposeOption {
	return func(c *composeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

type step struct {
	phase Phase
	index int
	run   func(ctx context.Context, g *graph.Graph) (*graph.Graph, error)
}

// Compose wraps original with the handlers of phases:
// before..., then replace... or original, then after....
// Steps run in sequence; each receives the graph produced by the previous
// one. The first failing step aborts the rest.
func Compose(stage Stage, phases Phases, original Transform, factory ContextFactory, opts ...ComposeOption) Transform {
	cfg := composeConfig{recorder: metrics.NoopRecorder{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	phases = phases.Normalize()

	var steps []step
	addHandlers := func(phase Phase, hs []Handler) {
		for i, h := range hs {
			steps = append(steps, step{phase: phase, index: i, run: handlerStep(stage, phase, i, h, factory, cfg)})
		}
	}
	addHandlers(PhaseBefore, phases.Before)
	if len(phases.Replace) > 0 {
		addHandlers(PhaseReplace, phases.Replace)
	} else {
		steps = append(steps, step{phase: "original", run: originalStep(stage, original)})
	}
	addHandlers(PhaseAfter, phases.After)

	return func(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
		current := g
		for _, s := range steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next, err := s.run(ctx, current)
			if err != nil {
				return nil, err
			}
			if next != nil {
				current = next
			}
		}
		return current, nil
	}
}

func handlerStep(stage Stage, phase Phase, index int, h Handler, factory ContextFactory, cfg composeConfig) func(context.Context, *graph.Graph) (*graph.Graph, error) {
	return func(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
		tc := factory(g)
		log := cfg.logger.With(logfields.Stage(string(stage)), logfields.Phase(string(phase)), logfields.Handler(index))
		if tc.Entry != nil {
			log = log.With(logfields.Entry(tc.Entry.ID))
		}
		log.Debug("Running hook handler")

		start := time.Now()
		next, err := h(ctx, tc)
		cfg.recorder.ObserveHandlerDuration(string(stage), string(phase), time.Since(start))
		cfg.recorder.IncHandlerResult(string(stage), string(phase), metrics.ResultFromError(err, errors.Is(err, context.Canceled)))
		if err != nil {
			log.Debug("Hook handler failed", logfields.Error(err))
			if perrors.Classified(err) {
				return nil, err
			}
			return nil, perrors.HandlerFailed(string(stage), string(phase), index, err)
		}
		return next, nil
	}
}

func originalStep(stage Stage, original Transform) func(context.Context, *graph.Graph) (*graph.Graph, error) {
	return func(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
		if original == nil {
			return nil, nil
		}
		next, err := original(ctx, g)
		if err != nil {
			if perrors.Classified(err) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, perrors.HostFailed(string(stage), err)
		}
		return next, nil
	}
}

// ComposeAll composes every stage present in merged. Stages without
// registered handlers keep their original transform unwrapped.
func ComposeAll(merged map[Stage]Phases, originals TransformSet, factoryFor func(Stage) ContextFactory, opts ...ComposeOption) TransformSet {
	out := originals.Clone()
	if out == nil {
		out = TransformSet{}
	}
	for _, stage := range stageOrder {
		phases, ok := merged[stage]
		if !ok || phases.Empty() {
			continue
		}
		out[stage] = Compose(stage, phases, originals[stage], factoryFor(stage), opts...)
	}
	return out
}

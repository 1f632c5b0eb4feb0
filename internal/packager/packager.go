package packager

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lukechampine.com/blake3"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/metrics"
	"git.home.luguber.info/inful/packhooks/internal/watch"
)

// Packager drives a project through the six stages.
type Packager struct {
	manifestPath string
	bundle       BundleFormat
	buildID      string
	debounce     time.Duration
	recorder     metrics.Recorder
	logger       *slog.Logger

	mu         sync.RWMutex
	transforms hooks.TransformSet
	last       *graph.Graph
}

// Option configures a Packager.
type Option func(*Packager)

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Packager) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Packager) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithBundleFormat sets the archive format used when the manifest names none.
func WithBundleFormat(f BundleFormat) Option {
	return func(p *Packager) { p.bundle = f }
}

// WithBuildID stamps emitted package.json files and log lines.
func WithBuildID(id string) Option {
	return func(p *Packager) { p.buildID = id }
}

// WithDebounce sets the watch mode quiet period.
func WithDebounce(d time.Duration) Option {
	return func(p *Packager) { p.debounce = d }
}

// New creates a packager for the manifest at manifestPath.
func New(manifestPath string, opts ...Option) *Packager {
	p := &Packager{
		manifestPath: manifestPath,
		bundle:       BundleTarGz,
		debounce:     watch.DefaultDebounce,
		recorder:     metrics.NoopRecorder{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.transforms = p.DefaultTransforms()
	return p
}

// ManifestPath returns the manifest location.
func (p *Packager) ManifestPath() string { return p.manifestPath }

// Root returns the directory holding the manifest.
func (p *Packager) Root() string {
	abs, err := filepath.Abs(p.manifestPath)
	if err != nil {
		return filepath.Dir(p.manifestPath)
	}
	return filepath.Dir(abs)
}

// DefaultTransforms returns the built-in stage implementations.
func (p *Packager) DefaultTransforms() hooks.TransformSet {
	return hooks.TransformSet{
		hooks.ConfigInit:     p.configInit,
		hooks.SourceAnalysis: p.sourceAnalysis,
		hooks.EntryPointInit: p.entryPointInit,
		hooks.Compile:        p.compile,
		hooks.BundleEmit:     p.bundleEmit,
		hooks.PackageEmit:    p.packageEmit,
	}
}

// Transforms returns a copy of the active stage transforms.
func (p *Packager) Transforms() hooks.TransformSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transforms.Clone()
}

// SetTransforms replaces the active stage transforms.
func (p *Packager) SetTransforms(ts hooks.TransformSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transforms = ts.Clone()
}

// LastGraph returns the graph produced by the most recent build, if any.
func (p *Packager) LastGraph() *graph.Graph {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Build discovers the project and runs one full pass over every stage.
func (p *Packager) Build(ctx context.Context) error {
	start := time.Now()
	log := p.logger
	if p.buildID != "" {
		log = log.With(logfields.BuildID(p.buildID))
	}

	g, err := Discover(p.manifestPath)
	if err == nil {
		g, err = p.run(ctx, g, log)
	}

	p.mu.Lock()
	p.last = g
	p.mu.Unlock()

	p.recorder.ObserveBuildDuration(time.Since(start))
	switch {
	case err == nil:
		p.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	case errors.Is(err, context.Canceled):
		p.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	default:
		p.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}
	if err != nil {
		return err
	}

	name := ""
	if pkg := PackageOf(g); pkg != nil {
		name = pkg.Name
	}
	done := len(g.Filter(graph.And(graph.IsEntryPoint, graph.InState(graph.StateDone))))
	log.Info("Build complete",
		logfields.Package(name),
		logfields.Count(done),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return nil
}

// run drives the graph stages once, then every queued entry point through the
// entry stages, one entry at a time.
func (p *Packager) run(ctx context.Context, g *graph.Graph, log *slog.Logger) (*graph.Graph, error) {
	ts := p.Transforms()

	var err error
	for _, stage := range hooks.GraphStages() {
		if g, err = p.runStage(ctx, stage, ts[stage], g, log); err != nil {
			return g, err
		}
	}

	for {
		n := g.Find(graph.IsEntryPointQueued)
		if n == nil {
			return g, nil
		}
		id := n.ID
		n.State = graph.StateInProgress
		entryLog := log.With(logfields.Entry(id))
		entryLog.Debug("Processing entry point")

		for _, stage := range hooks.EntryStages() {
			if g, err = p.runStage(ctx, stage, ts[stage], g, entryLog); err != nil {
				settleEntry(g, id, graph.StateError)
				return g, err
			}
		}
		settleEntry(g, id, graph.StateDone)
	}
}

// settleEntry moves the entry being processed out of the in-progress and queued states.
func settleEntry(g *graph.Graph, id string, state graph.NodeState) {
	for _, n := range g.Filter(graph.IsEntryPointInProgress) {
		n.State = state
	}
	if n, ok := g.Get(id); ok && n.State == graph.StateQueued {
		n.State = state
	}
}

func (p *Packager) runStage(ctx context.Context, stage hooks.Stage, fn hooks.Transform, g *graph.Graph, log *slog.Logger) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		p.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		return g, err
	}
	if fn == nil {
		return g, nil
	}

	t0 := time.Now()
	next, err := fn(ctx, g)
	dur := time.Since(t0)
	p.recorder.ObserveStageDuration(string(stage), dur)
	p.recorder.IncStageResult(string(stage), metrics.ResultFromError(err, ctx.Err() != nil))
	log.Debug("Stage finished", logfields.Stage(string(stage)), logfields.DurationMS(float64(dur.Milliseconds())))

	if err != nil {
		if !perrors.Classified(err) && ctx.Err() == nil {
			err = perrors.HostFailed(string(stage), err)
		}
		return g, err
	}
	if next == nil {
		return g, nil
	}
	return next, nil
}

// Watch builds once, then rebuilds whenever the manifest or a source
// directory changes, until ctx is done.
func (p *Packager) Watch(ctx context.Context) error {
	if err := p.Build(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Warn("Initial build failed; waiting for changes", logfields.Error(err))
	}

	// A build may write into its own inputs (a bumped manifest version, a
	// dest nested in a source directory). Rebuilds only run once the inputs
	// differ from what the last build left behind.
	inputs := p.inputFingerprint(ctx)
	rebuild := func(ctx context.Context) error {
		if inputs != "" && p.inputFingerprint(ctx) == inputs {
			p.logger.Debug("Inputs unchanged since last build; skipping rebuild")
			return nil
		}
		err := p.Build(ctx)
		inputs = p.inputFingerprint(ctx)
		return err
	}

	loop := &watch.Loop{Paths: p.WatchPaths(), Debounce: p.debounce, Logger: p.logger, Ignore: p.ignoreDest()}
	p.logger.Info("Watching for changes", logfields.Count(len(loop.Paths)))
	return loop.Run(ctx, rebuild)
}

// inputFingerprint digests the manifest and every entry point's sources.
// It returns "" when the inputs cannot be read, which forces a rebuild.
func (p *Packager) inputFingerprint(ctx context.Context) string {
	raw, err := os.ReadFile(p.manifestPath) // #nosec G304 -- manifest path is supplied by the operator
	if err != nil {
		return ""
	}
	g, err := Discover(p.manifestPath)
	if err != nil {
		return ""
	}
	h := blake3.New(32, nil)
	_, _ = h.Write(raw)
	for _, n := range g.Filter(graph.IsEntryPoint) {
		ep := EntryPointOf(n)
		if ep == nil {
			continue
		}
		files, err := AnalyseSources(ctx, ep.SourceDir, ep.Exclude)
		if err != nil {
			return ""
		}
		_, _ = fmt.Fprintf(h, "entry %s\n", ep.ModuleID)
		for _, f := range files {
			_, _ = fmt.Fprintf(h, "%s %s\n", f.Path, f.Digest)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ignoreDest extends the default ignore rules with the output directory.
func (p *Packager) ignoreDest() func(string) bool {
	g, err := Discover(p.manifestPath)
	if err != nil {
		return watch.ShouldIgnore
	}
	dest := PackageOf(g).Dest
	return func(path string) bool {
		return watch.ShouldIgnore(path) || withinAny(path, []string{dest})
	}
}

// WatchPaths returns the manifest and every entry point's source directory.
func (p *Packager) WatchPaths() []string {
	paths := []string{p.manifestPath}
	g, err := Discover(p.manifestPath)
	if err != nil {
		return paths
	}
	for _, n := range g.Filter(graph.IsEntryPoint) {
		if ep := EntryPointOf(n); ep != nil && ep.Primary {
			paths = append(paths, ep.SourceDir)
		}
	}
	for _, n := range g.Filter(graph.IsSecondary) {
		ep := EntryPointOf(n)
		if ep != nil && !withinAny(ep.SourceDir, paths[1:]) {
			paths = append(paths, ep.SourceDir)
		}
	}
	return paths
}

func withinAny(path string, roots []string) bool {
	for _, r := range roots {
		if rel, err := filepath.Rel(r, path); err == nil && rel != ".." && !startsWithParent(rel) {
			return true
		}
	}
	return false
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

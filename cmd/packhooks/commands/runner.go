package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/packhooks/internal/build"
	"git.home.luguber.info/inful/packhooks/internal/config"
	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/metrics"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

// BuildFlags are shared by every command that runs the pipeline.
type BuildFlags struct {
	Bundle        string   `help:"Override project.bundle (tgz|txz|tzst|none)"`
	TaskArgs      string   `name:"task-args" short:"a" help:"Task arguments as a query string, e.g. bump=minor&dry=1"`
	Job           []string `name:"job" short:"j" help:"Register an extra job after the configured ones"`
	MetricsListen string   `name:"metrics-listen" help:"Serve Prometheus metrics on this address"`
}

// runner executes hooked builds for one loaded configuration.
type runner struct {
	cfg      *config.Config
	global   *Global
	flags    BuildFlags
	recorder metrics.Recorder
	registry *prom.Registry
	// newBuildID is replaced in tests.
	newBuildID func() string
}

func newRunner(cfg *config.Config, g *Global, flags BuildFlags) *runner {
	r := &runner{
		cfg:        cfg,
		global:     g,
		flags:      flags,
		recorder:   metrics.NoopRecorder{},
		newBuildID: uuid.NewString,
	}
	if r.metricsListen() != "" {
		r.registry = prom.NewRegistry()
		r.recorder = metrics.NewPrometheusRecorder(r.registry)
	}
	return r
}

func (r *runner) metricsListen() string {
	if r.flags.MetricsListen != "" {
		return r.flags.MetricsListen
	}
	return r.cfg.Metrics.Listen
}

func (r *runner) taskArgs() string {
	if r.flags.TaskArgs != "" {
		return r.flags.TaskArgs
	}
	return r.cfg.Tasks.Args
}

func (r *runner) jobs() []hooks.JobType {
	jobs := r.cfg.JobTypes()
	for _, j := range r.flags.Job {
		jobs = append(jobs, hooks.JobType(j))
	}
	return jobs
}

// run performs one build or watch session under a fresh build ID.
func (r *runner) run(ctx context.Context, mode build.Mode) (*build.BuildResult, error) {
	bundle := r.cfg.Project.Bundle
	if r.flags.Bundle != "" {
		bundle = r.flags.Bundle
	}
	format, err := packager.ParseBundleFormat(bundle)
	if err != nil {
		return nil, perrors.ConfigInvalid("bundle", err.Error())
	}
	providers, err := r.cfg.Providers(r.global.Providers)
	if err != nil {
		return nil, err
	}

	buildID := r.newBuildID()
	log := r.global.Logger.With(logfields.BuildID(buildID))
	manifest := r.cfg.ManifestPath()
	host := packager.New(manifest,
		packager.WithBuildID(buildID),
		packager.WithBundleFormat(format),
		packager.WithRecorder(r.recorder),
		packager.WithLogger(log))

	svc := build.NewBuildService(host).
		WithJobTable(r.global.Jobs).
		WithRecorder(r.recorder).
		WithLogger(r.global.Logger)

	return svc.Run(ctx, build.BuildRequest{
		Mode: mode,
		Global: &hooks.GlobalContext{
			Root:        r.cfg.Dir(),
			ProjectRoot: filepath.Dir(manifest),
			BuildID:     buildID,
			TaskArgs:    r.taskArgs(),
		},
		Providers: providers,
		Jobs:      r.jobs(),
		Data:      r.cfg.Tasks.Data,
	})
}

// serveMetrics exposes the registry until ctx is done. It returns
// immediately when metrics are disabled.
func (r *runner) serveMetrics(ctx context.Context) (func(), error) {
	addr := r.metricsListen()
	if addr == "" || r.registry == nil {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, perrors.ConfigInvalid("metrics.listen", err.Error())
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(r.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.global.Logger.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	r.global.Logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()))
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/packhooks/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return runPipeline(ctx, g, root, b.BuildFlags, build.ModeBuild)
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags `embed:""`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := runPipeline(ctx, g, root, w.BuildFlags, build.ModeWatch)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runPipeline(ctx context.Context, g *Global, root *CLI, flags BuildFlags, mode build.Mode) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	r := newRunner(cfg, g, flags)
	stop, err := r.serveMetrics(ctx)
	if err != nil {
		return err
	}
	defer stop()

	res, err := r.run(ctx, mode)
	printSummary(g.Out, res, err)
	return err
}

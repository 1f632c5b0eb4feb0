// Package commands implements the packhooks command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/packhooks/internal/config"
	"git.home.luguber.info/inful/packhooks/internal/hooks"

	// Built-in jobs and providers register themselves.
	_ "git.home.luguber.info/inful/packhooks/internal/tasks"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger    *slog.Logger
	Out       io.Writer
	Jobs      *hooks.JobTable
	Providers *hooks.ProviderTable
}

// NewGlobal returns the process-wide defaults.
func NewGlobal() *Global {
	return &Global{
		Logger:    slog.Default(),
		Out:       os.Stdout,
		Jobs:      hooks.DefaultJobTable(),
		Providers: hooks.DefaultProviderTable(),
	}
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"packhooks.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Override logging.format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run the hooked pipeline once"`
	Watch     WatchCmd     `cmd:"" help:"Build, then rebuild on source changes until interrupted"`
	Schedule  ScheduleCmd  `cmd:"" help:"Run builds on a cron expression or interval"`
	Jobs      JobsCmd      `cmd:"" help:"List declared job types"`
	Providers ProvidersCmd `cmd:"" help:"List named hook providers"`
	Stages    StagesCmd    `cmd:"" help:"List pipeline stages in order"`
	History   HistoryCmd   `cmd:"" help:"Show packaging history from the build ledger"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. Commands that load
// a configuration file refine it with the configured logging section.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = newLogger(config.LoggingConfig{Level: config.LogLevelInfo, Format: config.NormalizeLogFormat(c.LogFormat)}, c.Verbose)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration file and applies its logging section.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = config.NormalizeLogFormat(c.LogFormat)
	}
	g.Logger = newLogger(cfg.Logging, c.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func newLogger(lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := lc.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/packhooks/internal/config"
	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/eventstore"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/tasks"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Module string `arg:"" optional:"" help:"Module id to list; shows the latest release of every module when omitted"`
	Limit  int    `short:"n" help:"Maximum number of events for one module" default:"20"`
	Ledger string `help:"Ledger database path (defaults to the ledger job's configured path)" type:"path"`
	JSON   bool   `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	path := h.Ledger
	if path == "" {
		cfg, err := root.loadConfig(g)
		if err != nil {
			return err
		}
		path = ledgerPathFor(cfg)
	}
	if _, err := os.Stat(path); err != nil {
		return perrors.FileSystemError("open ledger", err).WithContext("path", path)
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return perrors.FileSystemError("open ledger", err).WithContext("path", path)
	}
	defer func() { _ = store.Close() }()

	releases, err := h.releases(context.Background(), store)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(releases)
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tVERSION\tFILES\tBUNDLE\tBUILD\tPACKAGED")
	for _, r := range releases {
		bundle := r.Bundle
		if bundle == "" {
			bundle = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ModuleID, r.Version, r.Files, bundle, r.BuildID, r.PackagedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// releases returns one module's history newest first, or the latest release
// of every module sorted by module id.
func (h *HistoryCmd) releases(ctx context.Context, store *eventstore.SQLiteStore) ([]eventstore.Release, error) {
	if h.Module == "" {
		latest, err := eventstore.LatestReleases(ctx, store)
		if err != nil {
			return nil, err
		}
		out := make([]eventstore.Release, 0, len(latest))
		for _, id := range slices.Sorted(maps.Keys(latest)) {
			out = append(out, latest[id])
		}
		return out, nil
	}

	events, err := store.History(ctx, h.Module, h.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]eventstore.Release, 0, len(events))
	for _, ev := range events {
		e, err := eventstore.DecodeEntryPackaged(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, eventstore.Release{EntryPackaged: e, BuildID: ev.BuildID(), PackagedAt: ev.Timestamp()})
	}
	return out, nil
}

// ledgerPathFor resolves the ledger the ledger job writes for cfg.
func ledgerPathFor(cfg *config.Config) string {
	var configured string
	if data, ok := cfg.Tasks.Data["ledger"].(map[string]any); ok {
		configured, _ = data["path"].(string)
	}
	global := &hooks.GlobalContext{Root: cfg.Dir(), ProjectRoot: filepath.Dir(cfg.ManifestPath())}
	return tasks.LedgerPath(global, configured)
}

package tasks

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/packhooks/internal/eventstore"
	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

const selectorLedger = "ledger"

type ledgerConfig struct {
	Path    string `json:"path"`
	Digests bool   `json:"digests"`
}

func ledgerJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorLedger,
		Schema:      schema("ledger.json"),
		Description: "Append an EntryPackaged event to the build ledger",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {After: hooks.Handler(recordPackaged)},
		},
	}
}

// LedgerPath resolves the configured ledger path against the project root.
func LedgerPath(global *hooks.GlobalContext, configured string) string {
	if configured == "" {
		configured = eventstore.DefaultPath
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	root := global.ProjectRoot
	if root == "" {
		root = global.Root
	}
	return filepath.Join(root, configured)
}

func recordPackaged(ctx context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg ledgerConfig
	if err := tc.DecodeJobArgs(selectorLedger, &cfg); err != nil {
		return nil, err
	}
	pkg, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}

	store, err := eventstore.NewSQLiteStore(LedgerPath(tc.Global(), cfg.Path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	e := eventstore.EntryPackaged{
		Package:  pkg.Name,
		ModuleID: ep.ModuleID,
		Version:  pkg.Version,
		Bundle:   ep.BundlePath,
		Files:    len(ep.Outputs),
	}
	if cfg.Digests {
		e.Digests = make(map[string]string, len(ep.Files))
		for _, f := range ep.Files {
			e.Digests[f.Path] = f.Digest
		}
	}
	if err := eventstore.AppendEntryPackaged(ctx, store, tc.Global().BuildID, e); err != nil {
		return nil, err
	}
	tc.Logger().Debug("Recorded in ledger", logfields.Entry(ep.ModuleID), logfields.Version(pkg.Version))
	return nil, nil
}

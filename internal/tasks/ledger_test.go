package tasks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/eventstore"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

func TestLedger_RecordsEveryEntry(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobLedger}})
	require.NoError(t, err)

	store, err := eventstore.NewSQLiteStore(filepath.Join(root, eventstore.DefaultPath))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	releases, err := eventstore.LatestReleases(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, releases, 3)

	primary := releases["@acme/widgets"]
	assert.Equal(t, "test-build", primary.BuildID)
	assert.Equal(t, "1.2.3", primary.Version)
	assert.Equal(t, "acme-widgets-1.2.3.tgz", primary.Bundle)
	assert.Len(t, primary.Digests, 2)

	history, err := store.History(context.Background(), "@acme/widgets/forms", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLedger_CustomPathWithoutDigests(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())
	dbPath := filepath.Join(t.TempDir(), "builds.db")

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobLedger},
		data: map[string]any{"ledger": map[string]any{"path": dbPath, "digests": false}},
	})
	require.NoError(t, err)

	store, err := eventstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	events, err := store.GetByBuildID(context.Background(), "test-build")
	require.NoError(t, err)
	require.Len(t, events, 3)
	e, err := eventstore.DecodeEntryPackaged(events[0])
	require.NoError(t, err)
	assert.Empty(t, e.Digests)
}

func TestLedgerPath(t *testing.T) {
	g := &hooks.GlobalContext{Root: "/work", ProjectRoot: "/work/pkg"}
	assert.Equal(t, filepath.Join("/work/pkg", eventstore.DefaultPath), LedgerPath(g, ""))
	assert.Equal(t, "/abs/l.db", LedgerPath(g, "/abs/l.db"))
	assert.Equal(t, filepath.Join("/work", "x.db"), LedgerPath(&hooks.GlobalContext{Root: "/work"}, "x.db"))
}

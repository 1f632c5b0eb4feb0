package tasks

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/watch"
)

func TestPlainLib_Build(t *testing.T) {
	files := widgetsFiles()
	files["src/notes.md"] = "# notes"
	root := writeProject(t, widgetsManifest, files)

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobPlainLib},
		data: map[string]any{"plainLib": map[string]any{
			"outDir":  "esm",
			"exclude": []any{"**/*.md"},
		}},
	})
	require.NoError(t, err)

	doc := readPackageJSON(t, root)
	assert.Equal(t, "@acme/widgets", doc.Name)
	assert.Equal(t, []string{"esm/index.js", "esm/widget.js"}, doc.Files)
	assert.Equal(t, "esm/index.js", doc.Main)
	assert.Empty(t, doc.Bundle)
	assert.Equal(t, "test-build", doc.BuildID)

	assert.FileExists(t, filepath.Join(root, "dist", "esm", "widget.js"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "esm", "notes.md"))
	assert.NoDirExists(t, filepath.Join(root, "dist", "esm", "testing"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "acme-widgets-1.2.3.tgz"))
	assert.NoDirExists(t, filepath.Join(root, "dist", "lib"))

	forms := readPackageJSON(t, root, "forms")
	assert.Equal(t, []string{"esm/index.js"}, forms.Files)
}

func TestPlainLib_ExplicitMain(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobPlainLib},
		data: map[string]any{"plainLib": map[string]any{"main": "widget.js"}},
	})
	require.NoError(t, err)

	doc := readPackageJSON(t, root)
	assert.Equal(t, "widget.js", doc.Main)
	assert.Contains(t, doc.Files, "index.js")
}

func TestPlainLib_RejectsEscapingOutDir(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobPlainLib},
		data: map[string]any{"plainLib": map[string]any{"outDir": "../elsewhere"}},
	})
	require.Error(t, err)
}

type fakeRunner struct {
	mu   sync.Mutex
	runs int
	done chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, _ watch.RebuildFunc) error {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	<-ctx.Done()
	close(f.done)
	return nil
}

func TestPlainLib_StartsOneWatcherPerOutput(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())
	fr := &fakeRunner{done: make(chan struct{})}
	lib := &plainLib{
		watching: make(map[string]bool),
		newLoop:  func([]string, *hooks.TaskContext) runner { return fr },
	}
	global := &hooks.GlobalContext{Root: root, ProjectRoot: root, Watch: true}

	ctx, cancel := context.WithCancel(context.Background())
	for range 2 {
		tc := entryContext(t, root, hooks.Compile, "@acme/widgets", global, nil)
		_, err := lib.plan(ctx, tc)
		require.NoError(t, err)
		_, err = lib.compile(ctx, tc)
		require.NoError(t, err)
	}

	cancel()
	<-fr.done
	fr.mu.Lock()
	defer fr.mu.Unlock()
	assert.Equal(t, 1, fr.runs)
	assert.FileExists(t, filepath.Join(root, "dist", "index.js"))
}

package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/build"
	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

const widgetsManifest = `name: "@acme/widgets"
version: 1.2.3
entryPoints:
  - name: testing
    source: src/testing
  - name: forms
    source: forms
`

func widgetsFiles() map[string]string {
	return map[string]string{
		"src/index.js":         "export * from './widget';\n",
		"src/widget.js":        "export const widget = 1;\n",
		"src/testing/index.js": "export const fake = true;\n",
		"forms/index.js":       "export const form = {};\n",
	}
}

// writeProject lays out a project and returns its root.
func writeProject(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{packager.ManifestFile: manifest})
	writeFiles(t, root, files)
	return root
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

type runOpts struct {
	jobs      []hooks.JobType
	providers []hooks.Provider
	data      map[string]any
	args      string
}

// runBuild drives a real packager through the build service with the
// default job table.
func runBuild(t *testing.T, root string, o runOpts) (*packager.Packager, error) {
	t.Helper()
	p := packager.New(filepath.Join(root, packager.ManifestFile), packager.WithBuildID("test-build"))
	svc := build.NewBuildService(p)
	_, err := svc.Run(context.Background(), build.BuildRequest{
		Mode: build.ModeBuild,
		Global: &hooks.GlobalContext{
			Root:        root,
			ProjectRoot: root,
			BuildID:     "test-build",
			TaskArgs:    o.args,
		},
		Providers: o.providers,
		Jobs:      o.jobs,
		Data:      o.data,
	})
	return p, err
}

func readPackageJSON(t *testing.T, root string, parts ...string) packager.PackageJSON {
	t.Helper()
	p := filepath.Join(append([]string{root, "dist"}, append(parts, packager.PackageJSONFile)...)...)
	doc, err := packager.ReadPackageJSON(p)
	require.NoError(t, err)
	return doc
}

// entryContext discovers root and returns a context for stage with the
// entry named id in progress. Destinations are resolved as ConfigInit would.
func entryContext(t *testing.T, root string, stage hooks.Stage, id string, global *hooks.GlobalContext, jobArgs map[string]any) *hooks.TaskContext {
	t.Helper()
	g, err := packager.Discover(filepath.Join(root, packager.ManifestFile))
	require.NoError(t, err)
	pkg := packager.PackageOf(g)
	for _, n := range g.Filter(graph.IsEntryPoint) {
		ep := packager.EntryPointOf(n)
		ep.DestDir = filepath.Join(pkg.Dest, filepath.FromSlash(ep.Name))
		if n.ID == id {
			n.State = graph.StateInProgress
		}
	}
	if global == nil {
		global = &hooks.GlobalContext{Root: root, ProjectRoot: root}
	}
	return hooks.NewTaskContext(stage, global, g, jobArgs)
}

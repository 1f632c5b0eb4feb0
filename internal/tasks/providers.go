package tasks

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

// Named providers.
const (
	ProviderFilterSecondary = "filter-secondary"
	ProviderCopyLicense     = "copy-license"
	ProviderStrictSecondary = "strict-secondary"
)

// licenseNames are tried in order in the project root.
var licenseNames = []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "LICENCE"}

// Providers returns the built-in named providers.
func Providers() map[string]hooks.Provider {
	return map[string]hooks.Provider{
		ProviderFilterSecondary: hooks.HooksConfig{
			hooks.ConfigInit: {Before: hooks.Handler(primaryOnly)},
		},
		ProviderCopyLicense:     hooks.HooksFunc(copyLicense),
		ProviderStrictSecondary: hooks.RegistryFunc(strictSecondary),
	}
}

// primaryOnly settles every secondary entry point before any entry stage runs.
func primaryOnly(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	for _, n := range tc.Graph.Filter(graph.IsSecondary) {
		n.State = graph.StateDone
	}
	return tc.Graph, nil
}

// copyLicense resolves the license file once and copies it next to every
// entry point's package.json. Without a license file it registers nothing.
func copyLicense(_ context.Context, global *hooks.GlobalContext) (hooks.HooksConfig, error) {
	root := global.ProjectRoot
	if root == "" {
		root = global.Root
	}
	license := ""
	for _, name := range licenseNames {
		p := filepath.Join(root, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			license = p
			break
		}
	}
	if license == "" {
		global.Log().Debug("No license file; copy-license disabled", logfields.Path(root))
		return hooks.HooksConfig{}, nil
	}

	return hooks.HooksConfig{
		hooks.PackageEmit: {After: hooks.Handler(func(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
			_, ep, err := entryOf(tc)
			if err != nil {
				return nil, err
			}
			return nil, packager.CopyFile(license, filepath.Join(ep.DestDir, filepath.Base(license)))
		})},
	}, nil
}

func strictSecondary(_ context.Context, _ *hooks.GlobalContext, r *hooks.Registry) error {
	return r.Register(hooks.ConfigInit, hooks.TaskPhases{
		After: hooks.Handler(func(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
			for _, n := range tc.Graph.Filter(graph.IsSecondary) {
				n.Data.Set(packager.KeyCompileFlags, packager.CompileFlags{Strict: true})
			}
			return nil, nil
		}),
	})
}

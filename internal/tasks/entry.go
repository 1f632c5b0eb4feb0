package tasks

import (
	"fmt"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

// entryOf returns the package and the entry point a handler runs for.
func entryOf(tc *hooks.TaskContext) (*packager.Package, *packager.EntryPoint, error) {
	pkg := packager.PackageOf(tc.Graph)
	if pkg == nil {
		return nil, nil, fmt.Errorf("%s: graph has no package node", tc.Stage)
	}
	ep := packager.EntryPointOf(tc.Entry)
	if ep == nil {
		return nil, nil, fmt.Errorf("%s: no entry point in progress", tc.Stage)
	}
	return pkg, ep, nil
}

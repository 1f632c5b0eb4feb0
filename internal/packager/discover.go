package packager

import (
	"path/filepath"
	"sort"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/graph"
)

// Discover loads the manifest and builds a fresh graph: the package node,
// then the primary entry point, then the secondaries sorted by name. Every
// node starts queued.
func Discover(manifestPath string) (*graph.Graph, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, perrors.FileSystemError("resolve manifest path", err)
	}
	m, err := LoadManifest(abs)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(abs)

	pkg := &Package{
		Name:         m.Name,
		Version:      m.Version,
		Root:         root,
		ManifestPath: abs,
		Dest:         filepath.Join(root, m.Dest),
		Bundle:       BundleFormat(m.Bundle),
	}

	g := graph.New()
	pkgNode := graph.NewNode("package:"+m.Name, graph.TypePackage)
	pkgNode.Data.Set(KeyPackage, pkg)
	g.Put(pkgNode)

	secondaries := append([]EntrySpec(nil), m.EntryPoints...)
	sort.Slice(secondaries, func(i, j int) bool { return secondaries[i].Name < secondaries[j].Name })

	primary := &EntryPoint{
		ModuleID:  m.Name,
		Primary:   true,
		SourceDir: filepath.Join(root, m.Source),
	}
	for _, s := range secondaries {
		primary.Exclude = append(primary.Exclude, filepath.Join(root, s.Source))
	}
	excludeDest(primary, pkg.Dest)
	addEntry(g, primary)

	for _, s := range secondaries {
		ep := &EntryPoint{
			Name:      s.Name,
			ModuleID:  moduleID(m.Name, s.Name),
			SourceDir: filepath.Join(root, s.Source),
		}
		excludeDest(ep, pkg.Dest)
		addEntry(g, ep)
	}
	return g, nil
}

// excludeDest keeps a destination nested in the source tree out of analysis.
func excludeDest(ep *EntryPoint, dest string) {
	if withinAny(dest, []string{ep.SourceDir}) {
		ep.Exclude = append(ep.Exclude, dest)
	}
}

func addEntry(g *graph.Graph, ep *EntryPoint) {
	n := graph.NewNode(ep.ModuleID, graph.TypeEntryPoint)
	n.Data.Set(KeyEntryPoint, ep)
	n.Data.Set(graph.KeyPrimary, ep.Primary)
	g.Put(n)
}

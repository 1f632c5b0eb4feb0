package packager

import (
	"path"

	"git.home.luguber.info/inful/packhooks/internal/graph"
)

// Data keys used on graph nodes.
const (
	KeyPackage      = "package"
	KeyEntryPoint   = "entryPoint"
	KeyCompileFlags = "compileFlags"
)

// CompileFlags adjust the Compile stage for one entry point.
type CompileFlags struct {
	// Strict fails the entry when no index file was compiled.
	Strict bool
}

// CompileFlagsOf returns the flags recorded on n.
func CompileFlagsOf(n *graph.Node) CompileFlags {
	if n == nil {
		return CompileFlags{}
	}
	f, _ := n.Data.Get(KeyCompileFlags).(CompileFlags)
	return f
}

// Package is the data carried by the package node.
type Package struct {
	Name    string
	Version string
	// Root is the manifest directory; all manifest paths are relative to it.
	Root         string
	ManifestPath string
	// Dest is the absolute output directory.
	Dest   string
	Bundle BundleFormat
}

// EntryPoint is the data carried by an entry point node.
type EntryPoint struct {
	// Name is "" for the primary entry point, else the secondary's name.
	Name      string
	ModuleID  string
	Primary   bool
	SourceDir string
	DestDir   string
	Bundle    BundleFormat
	// Exclude lists source directories owned by other entry points.
	Exclude []string
	// Files are set by SourceAnalysis.
	Files []SourceFile
	// Outputs are destination-relative paths written by Compile.
	Outputs []string
	// BundlePath is set by BundleEmit.
	BundlePath string
	// PackageJSON is set by PackageEmit.
	PackageJSON string
}

// SourceFile is an analysed source file.
type SourceFile struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"blake3"`
}

// PackageOf returns the package data of g, or nil.
func PackageOf(g *graph.Graph) *Package {
	if g == nil {
		return nil
	}
	n := g.Find(graph.IsPackage)
	if n == nil {
		return nil
	}
	p, _ := n.Data.Get(KeyPackage).(*Package)
	return p
}

// EntryPointOf returns the entry point data of n, or nil.
func EntryPointOf(n *graph.Node) *EntryPoint {
	if n == nil {
		return nil
	}
	ep, _ := n.Data.Get(KeyEntryPoint).(*EntryPoint)
	return ep
}

func moduleID(pkgName, entryName string) string {
	if entryName == "" {
		return pkgName
	}
	return path.Join(pkgName, entryName)
}

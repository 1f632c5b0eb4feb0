package packager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

// PackageJSONFile is the metadata file written by PackageEmit.
const PackageJSONFile = "package.json"

var errNoPackage = errors.New("graph has no package node")

// CurrentEntry returns the entry point in progress and its data.
func CurrentEntry(g *graph.Graph) (*graph.Node, *EntryPoint, error) {
	n := g.Find(graph.IsEntryPointInProgress)
	if n == nil {
		return nil, nil, errors.New("no entry point in progress")
	}
	ep := EntryPointOf(n)
	if ep == nil {
		return nil, nil, fmt.Errorf("entry point %s carries no entry data", n.ID)
	}
	return n, ep, nil
}

// configInit resolves destination and bundle settings. Values already set by
// earlier handlers are kept.
func (p *Packager) configInit(_ context.Context, g *graph.Graph) (*graph.Graph, error) {
	pkg := PackageOf(g)
	if pkg == nil {
		return nil, errNoPackage
	}
	format := pkg.Bundle
	if format == "" {
		format = p.bundle
	}
	format, err := ParseBundleFormat(string(format))
	if err != nil {
		return nil, perrors.ConfigInvalid("bundle", err.Error())
	}
	pkg.Bundle = format

	for _, n := range g.Filter(graph.IsEntryPoint) {
		ep := EntryPointOf(n)
		if ep == nil {
			continue
		}
		if ep.DestDir == "" {
			ep.DestDir = filepath.Join(pkg.Dest, filepath.FromSlash(ep.Name))
		}
		if ep.Bundle == "" {
			ep.Bundle = format
		}
	}
	return g, nil
}

// sourceAnalysis digests the sources of every entry point that is still to be built.
func (p *Packager) sourceAnalysis(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
	for _, n := range g.Filter(graph.IsEntryPointQueued) {
		ep := EntryPointOf(n)
		if ep == nil {
			continue
		}
		fi, err := os.Stat(ep.SourceDir)
		if err != nil || !fi.IsDir() {
			return nil, perrors.ConfigInvalid("source", fmt.Sprintf("source directory %s of %s does not exist", ep.SourceDir, ep.ModuleID))
		}
		files, err := AnalyseSources(ctx, ep.SourceDir, ep.Exclude)
		if err != nil {
			return nil, perrors.FileSystemError("analyse sources", err).WithContext("entry", ep.ModuleID)
		}
		ep.Files = files
		p.logger.Debug("Analysed sources", logfields.Entry(ep.ModuleID), logfields.Count(len(files)))
	}
	return g, nil
}

func (p *Packager) entryPointInit(_ context.Context, g *graph.Graph) (*graph.Graph, error) {
	_, ep, err := CurrentEntry(g)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(filepath.Join(ep.DestDir, "lib")); err != nil {
		return nil, perrors.FileSystemError("clean output", err).WithContext("path", ep.DestDir)
	}
	if err := os.MkdirAll(ep.DestDir, 0o750); err != nil {
		return nil, perrors.FileSystemError("create output", err).WithContext("path", ep.DestDir)
	}
	ep.Outputs = nil
	ep.BundlePath = ""
	return g, nil
}

// compile copies the analysed sources into <dest>/lib. Output names are NFC
// normalized so archives are stable across file systems.
func (p *Packager) compile(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
	n, ep, err := CurrentEntry(g)
	if err != nil {
		return nil, err
	}
	for _, f := range ep.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := norm.NFC.String(path.Join("lib", f.Path))
		src := filepath.Join(ep.SourceDir, filepath.FromSlash(f.Path))
		dst := filepath.Join(ep.DestDir, filepath.FromSlash(out))
		if err := copyFile(src, dst); err != nil {
			return nil, perrors.FileSystemError("compile", err).WithContext("file", f.Path)
		}
		ep.Outputs = append(ep.Outputs, out)
	}
	if CompileFlagsOf(n).Strict && indexOf(ep.Outputs) == "" {
		return nil, fmt.Errorf("entry point %s compiled no index file", ep.ModuleID)
	}
	p.logger.Debug("Compiled entry point", logfields.Entry(ep.ModuleID), logfields.Count(len(ep.Outputs)))
	return g, nil
}

func (p *Packager) bundleEmit(_ context.Context, g *graph.Graph) (*graph.Graph, error) {
	_, ep, err := CurrentEntry(g)
	if err != nil {
		return nil, err
	}
	pkg := PackageOf(g)
	if pkg == nil {
		return nil, errNoPackage
	}
	if ep.Bundle == BundleNone {
		return g, nil
	}
	lib := filepath.Join(ep.DestDir, "lib")
	if _, err := os.Stat(lib); err != nil {
		p.logger.Warn("Nothing to bundle", logfields.Entry(ep.ModuleID), logfields.Path(lib))
		return g, nil
	}
	name := BundleName(ep.ModuleID, pkg.Version, ep.Bundle)
	if err := writeBundle(ep.Bundle, lib, filepath.Join(ep.DestDir, name)); err != nil {
		return nil, perrors.FileSystemError("bundle", err).WithContext("entry", ep.ModuleID)
	}
	ep.BundlePath = name
	p.logger.Debug("Bundle written", logfields.Entry(ep.ModuleID), logfields.File(name))
	return g, nil
}

// BundleName returns the archive file name for a module at a version.
func BundleName(moduleID, version string, format BundleFormat) string {
	base := strings.NewReplacer("@", "", "/", "-").Replace(moduleID)
	return base + "-" + version + format.Extension()
}

// PackageJSON is the metadata document written for every entry point.
type PackageJSON struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Main        string            `json:"main,omitempty"`
	Files       []string          `json:"files"`
	Bundle      string            `json:"bundle,omitempty"`
	Digests     map[string]string `json:"digests,omitempty"`
	BuildID     string            `json:"buildId,omitempty"`
	// Readme fields are filled in by the readme task.
	Readme            string `json:"readme,omitempty"`
	ReadmeFingerprint string `json:"readmeFingerprint,omitempty"`
}

func (p *Packager) packageEmit(_ context.Context, g *graph.Graph) (*graph.Graph, error) {
	_, ep, err := CurrentEntry(g)
	if err != nil {
		return nil, err
	}
	pkg := PackageOf(g)
	if pkg == nil {
		return nil, errNoPackage
	}

	doc := PackageJSON{
		Name:    ep.ModuleID,
		Version: pkg.Version,
		Files:   append([]string{}, ep.Outputs...),
		Bundle:  ep.BundlePath,
		Digests: make(map[string]string, len(ep.Files)),
		BuildID: p.buildID,
	}
	for _, f := range ep.Files {
		doc.Digests[f.Path] = f.Digest
	}
	doc.Main = indexOf(ep.Outputs)

	if err := WritePackageJSON(filepath.Join(ep.DestDir, PackageJSONFile), doc); err != nil {
		return nil, err
	}
	ep.PackageJSON = filepath.Join(ep.DestDir, PackageJSONFile)
	p.logger.Info("Built entry point", logfields.Entry(ep.ModuleID), logfields.Version(pkg.Version))
	return g, nil
}

// indexOf returns the first output named index.*.
func indexOf(outputs []string) string {
	for _, out := range outputs {
		if strings.HasPrefix(path.Base(out), "index.") {
			return out
		}
	}
	return ""
}

// WritePackageJSON writes doc as indented JSON.
func WritePackageJSON(dest string, doc PackageJSON) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return perrors.InternalError("encode package.json", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return perrors.FileSystemError("create output", err)
	}
	if err := os.WriteFile(dest, append(raw, '\n'), 0o600); err != nil {
		return perrors.FileSystemError("write package.json", err).WithContext("path", dest)
	}
	return nil
}

// ReadPackageJSON reads a document written by WritePackageJSON.
func ReadPackageJSON(src string) (PackageJSON, error) {
	var doc PackageJSON
	raw, err := os.ReadFile(src) // #nosec G304 -- reading packager output
	if err != nil {
		return doc, err
	}
	err = json.Unmarshal(raw, &doc)
	return doc, err
}

func copyFile(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- analysed source file
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst) // #nosec G304 -- destination inside the package output
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

// CopyFile copies a single file, creating parent directories.
func CopyFile(src, dst string) error { return copyFile(src, dst) }

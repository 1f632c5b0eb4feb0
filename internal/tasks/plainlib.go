package tasks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
	"git.home.luguber.info/inful/packhooks/internal/watch"
)

const (
	selectorPlainLib = "plainLib"
	keyPlainLibPlan  = "plainLib"
)

type plainLibConfig struct {
	OutDir  string   `json:"outDir"`
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
	Main    string   `json:"main"`
}

// PlainLibPlan is stored on each entry point node by ConfigInit.
type PlainLibPlan struct {
	SourceDir string
	// OutDir is absolute.
	OutDir  string
	Include []string
	Exclude []string
	// Skip lists source directories owned by other entry points.
	Skip []string
	Main string
}

// plainLib keeps one watcher per output directory across rebuilds.
type plainLib struct {
	mu       sync.Mutex
	watching map[string]bool
	newLoop  func(paths []string, tc *hooks.TaskContext) runner
}

type runner interface {
	Run(ctx context.Context, rebuild watch.RebuildFunc) error
}

var plain = &plainLib{
	watching: make(map[string]bool),
	newLoop: func(paths []string, tc *hooks.TaskContext) runner {
		return &watch.Loop{Paths: paths, Logger: tc.Logger()}
	},
}

func plainLibJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:        selectorPlainLib,
		Schema:          schema("plain-lib.json"),
		Description:     "Copy sources verbatim and write package.json without a bundle",
		ManagesOwnWatch: true,
		Hooks: hooks.HooksConfig{
			hooks.ConfigInit:  {After: hooks.Handler(plain.plan)},
			hooks.Compile:     {Replace: hooks.Handler(plain.compile)},
			hooks.BundleEmit:  {Replace: hooks.Noop},
			hooks.PackageEmit: {Replace: hooks.Handler(plain.packageEmit)},
		},
	}
}

// plan resolves the configuration for every entry point once, after the
// destinations are known.
func (p *plainLib) plan(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg plainLibConfig
	if err := tc.DecodeJobArgs(selectorPlainLib, &cfg); err != nil {
		return nil, err
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if len(cfg.Include) == 0 {
		cfg.Include = []string{"**/*"}
	}
	if filepath.IsAbs(cfg.OutDir) || strings.HasPrefix(path.Clean(filepath.ToSlash(cfg.OutDir)), "..") {
		return nil, fmt.Errorf("plainLib: outDir %q must stay inside the entry point output", cfg.OutDir)
	}

	for _, n := range tc.Graph.Filter(graph.IsEntryPoint) {
		ep := packager.EntryPointOf(n)
		if ep == nil {
			continue
		}
		n.Data.Set(keyPlainLibPlan, &PlainLibPlan{
			SourceDir: ep.SourceDir,
			OutDir:    filepath.Join(ep.DestDir, filepath.FromSlash(cfg.OutDir)),
			Include:   cfg.Include,
			Exclude:   cfg.Exclude,
			Skip:      ep.Exclude,
			Main:      cfg.Main,
		})
	}
	return nil, nil
}

func planOf(n *graph.Node) (*PlainLibPlan, error) {
	pl, _ := n.Data.Get(keyPlainLibPlan).(*PlainLibPlan)
	if pl == nil {
		return nil, fmt.Errorf("plainLib: entry point %s was not planned", n.ID)
	}
	return pl, nil
}

func (p *plainLib) compile(ctx context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	_, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}
	pl, err := planOf(tc.Entry)
	if err != nil {
		return nil, err
	}
	outputs, err := CopyPlain(ctx, pl)
	if err != nil {
		return nil, err
	}
	ep.Outputs = outputs
	tc.Logger().Debug("Copied plain sources", logfields.Count(len(outputs)))

	if tc.Global().Watch {
		p.startWatch(ctx, tc, pl)
	}
	return nil, nil
}

// startWatch runs a watcher for pl until ctx is done. Later builds for the
// same output reuse it.
func (p *plainLib) startWatch(ctx context.Context, tc *hooks.TaskContext, pl *PlainLibPlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watching[pl.OutDir] {
		return
	}
	p.watching[pl.OutDir] = true

	loop := p.newLoop([]string{pl.SourceDir}, tc)
	log := tc.Logger()
	log.Info("Watching plain sources", logfields.Path(pl.SourceDir))
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.watching, pl.OutDir)
			p.mu.Unlock()
		}()
		err := loop.Run(ctx, func(ctx context.Context) error {
			_, err := CopyPlain(ctx, pl)
			return err
		})
		if err != nil {
			log.Warn("Plain source watcher stopped", logfields.Error(err))
		}
	}()
}

// CopyPlain copies every included source file of pl into its output
// directory and returns the copied paths relative to it, in walk order.
func CopyPlain(ctx context.Context, pl *PlainLibPlan) ([]string, error) {
	files, err := plainFiles(pl)
	if err != nil {
		return nil, err
	}
	outputs := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(pl.OutDir, filepath.FromSlash(f))
		if err := packager.CopyFile(filepath.Join(pl.SourceDir, filepath.FromSlash(f)), dst); err != nil {
			return nil, fmt.Errorf("plainLib: %w", err)
		}
		outputs = append(outputs, f)
	}
	return outputs, nil
}

func plainFiles(pl *PlainLibPlan) ([]string, error) {
	var files []string
	fsys := os.DirFS(pl.SourceDir)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && skipDir(filepath.Join(pl.SourceDir, filepath.FromSlash(p)), pl.Skip) {
				return fs.SkipDir
			}
			return nil
		}
		if matchAny(pl.Include, p) && !matchAny(pl.Exclude, p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("plainLib: walk %s: %w", pl.SourceDir, err)
	}
	return files, nil
}

func skipDir(dir string, skip []string) bool {
	for _, s := range skip {
		if filepath.Clean(dir) == filepath.Clean(s) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func (p *plainLib) packageEmit(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	pkg, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}
	pl, err := planOf(tc.Entry)
	if err != nil {
		return nil, err
	}
	prefix, err := filepath.Rel(ep.DestDir, pl.OutDir)
	if err != nil {
		return nil, err
	}
	prefix = filepath.ToSlash(prefix)

	files := make([]string, 0, len(ep.Outputs))
	for _, out := range ep.Outputs {
		files = append(files, path.Join(prefix, out))
	}
	doc := packager.PackageJSON{
		Name:    ep.ModuleID,
		Version: pkg.Version,
		Files:   files,
		BuildID: tc.Global().BuildID,
	}
	switch {
	case pl.Main != "":
		doc.Main = path.Join(prefix, pl.Main)
	default:
		for _, f := range files {
			if strings.HasPrefix(path.Base(f), "index.") {
				doc.Main = f
				break
			}
		}
	}
	if len(ep.Files) > 0 {
		doc.Digests = make(map[string]string, len(ep.Files))
		for _, f := range ep.Files {
			doc.Digests[f.Path] = f.Digest
		}
	}

	dest := filepath.Join(ep.DestDir, packager.PackageJSONFile)
	if err := packager.WritePackageJSON(dest, doc); err != nil {
		return nil, err
	}
	ep.PackageJSON = dest
	tc.Logger().Info("Built plain entry point", logfields.Entry(ep.ModuleID), logfields.Version(pkg.Version))
	return nil, nil
}

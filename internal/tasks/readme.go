package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
	"git.home.luguber.info/inful/packhooks/internal/readme"
)

const selectorReadme = "readme"

type readmeConfig struct {
	Required   bool   `json:"required"`
	CheckLinks bool   `json:"checkLinks"`
	Output     string `json:"output"`
}

func readmeJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorReadme,
		Schema:      schema("readme.json"),
		Description: "Render README.md next to package.json and record its fingerprint",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {After: hooks.Handler(renderReadme)},
		},
	}
}

// renderReadme looks for README.md in the entry's source directory, falling
// back to the package root for the primary entry point.
func renderReadme(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg readmeConfig
	if err := tc.DecodeJobArgs(selectorReadme, &cfg); err != nil {
		return nil, err
	}
	if cfg.Output == "" {
		cfg.Output = "README.html"
	}
	pkg, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}
	log := tc.Logger()

	src := findReadme(ep.SourceDir)
	if src == "" && ep.Primary {
		src = findReadme(pkg.Root)
	}
	if src == "" {
		if cfg.Required {
			return nil, fmt.Errorf("readme: no %s for %s", readme.FileName, ep.ModuleID)
		}
		log.Debug("No README found")
		return nil, nil
	}

	doc, err := readme.Load(src)
	if err != nil {
		return nil, fmt.Errorf("readme: %s: %w", src, err)
	}
	if cfg.CheckLinks {
		base := filepath.Dir(src)
		for _, l := range doc.Links {
			if _, err := os.Stat(filepath.Join(base, filepath.FromSlash(l))); errors.Is(err, fs.ErrNotExist) {
				log.Warn("README links to a missing file", logfields.File(l))
			}
		}
	}

	out := filepath.Join(ep.DestDir, cfg.Output)
	if err := os.WriteFile(out, doc.HTML, 0o600); err != nil {
		return nil, fmt.Errorf("readme: write %s: %w", out, err)
	}
	if ep.PackageJSON == "" {
		return nil, nil
	}
	meta, err := packager.ReadPackageJSON(ep.PackageJSON)
	if err != nil {
		return nil, fmt.Errorf("readme: %w", err)
	}
	meta.Readme = cfg.Output
	meta.ReadmeFingerprint = doc.Fingerprint
	if meta.Description == "" {
		meta.Description = doc.Summary
	}
	if err := packager.WritePackageJSON(ep.PackageJSON, meta); err != nil {
		return nil, err
	}
	log.Info("README rendered", logfields.File(cfg.Output))
	return nil, nil
}

func findReadme(dir string) string {
	if dir == "" {
		return ""
	}
	p := filepath.Join(dir, readme.FileName)
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return p
	}
	return ""
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

const selectorCopyFile = "copyFile"

// defaultCopyIgnore is always applied on top of a pattern's own ignore list.
var defaultCopyIgnore = []string{"**/.gitkeep", "**/.DS_Store", "**/Thumbs.db"}

// AssetPattern selects files to copy. In configuration it is either an object
// or a plain path string.
type AssetPattern struct {
	Glob             string   `json:"glob"`
	Input            string   `json:"input"`
	Output           string   `json:"output"`
	Ignore           []string `json:"ignore"`
	ExplicitFileName string   `json:"explicitFileName"`

	// path is set when the pattern was given as a string.
	path string
}

func (a *AssetPattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AssetPattern{path: s}
		return nil
	}
	type plain AssetPattern
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AssetPattern(p)
	return nil
}

type copyFileConfig struct {
	Assets []AssetPattern `json:"assets"`
}

// CopyPattern is a resolved AssetPattern.
type CopyPattern struct {
	// Context is the absolute input directory.
	Context string
	Glob    string
	// To is relative to the destination root.
	To               string
	Ignore           []string
	ExplicitFileName string
}

func copyFileJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorCopyFile,
		Schema:      schema("copy-file.json"),
		Description: "Copy asset globs into the primary entry point's output",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {Before: hooks.Handler(copyFiles)},
		},
	}
}

func copyFiles(ctx context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	if !tc.IsPrimaryEntry() {
		return nil, nil
	}
	var cfg copyFileConfig
	if err := tc.DecodeJobArgs(selectorCopyFile, &cfg); err != nil {
		return nil, err
	}
	_, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}

	global := tc.Global()
	root := global.Root
	if root == "" {
		root = global.ProjectRoot
	}
	patterns, err := CreateCopyPatterns(cfg.Assets, root, global.ProjectRoot)
	if err != nil {
		return nil, err
	}

	log := tc.Logger()
	log.Info("Copying assets")
	copied, err := ExecuteCopyPatterns(ctx, patterns, ep.DestDir, func(_ CopyPattern, from, to string) {
		log.Debug("Copied asset", "from", from, "to", to)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Assets copied", "count", copied)
	return nil, nil
}

// CreateCopyPatterns resolves assets against root. A pattern without an input
// reads from projectRoot; a string asset names a file or a directory.
func CreateCopyPatterns(assets []AssetPattern, root, projectRoot string) ([]CopyPattern, error) {
	out := make([]CopyPattern, 0, len(assets))
	for _, a := range assets {
		if a.path != "" {
			a = assetFromPath(a.path, root)
		}
		input := a.Input
		if input == "" {
			input = projectRoot
		}
		if !filepath.IsAbs(input) {
			input = filepath.Join(root, input)
		}

		output := filepath.ToSlash(a.Output)
		if output == "" {
			output = "/"
		}
		if strings.HasPrefix(path.Clean(strings.TrimPrefix(output, "/")), "..") {
			return nil, fmt.Errorf("copyFile: asset output %q is outside of the output path", a.Output)
		}
		if err := checkExplicitFileName(a.ExplicitFileName); err != nil {
			return nil, err
		}

		out = append(out, CopyPattern{
			Context:          filepath.Clean(input),
			Glob:             a.Glob,
			To:               strings.TrimPrefix(output, "/"),
			Ignore:           append(append([]string{}, a.Ignore...), defaultCopyIgnore...),
			ExplicitFileName: a.ExplicitFileName,
		})
	}
	return out, nil
}

// checkExplicitFileName accepts a bare file name only.
func checkExplicitFileName(name string) error {
	if name == "" {
		return nil
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("copyFile: explicitFileName %q must be a plain file name", name)
	}
	return nil
}

// assetFromPath expands a string asset: a directory copies everything below
// it into a folder of the same name, a file copies just that file.
func assetFromPath(p, root string) AssetPattern {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, p)
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return AssetPattern{Glob: "**/*", Input: abs, Output: filepath.Base(abs)}
	}
	return AssetPattern{Glob: filepath.Base(abs), Input: filepath.Dir(abs), Output: "/"}
}

// ExecuteCopyPatterns copies every match of patterns below destRoot and
// returns the number of copied files.
func ExecuteCopyPatterns(ctx context.Context, patterns []CopyPattern, destRoot string, onCopy func(p CopyPattern, from, to string)) (int, error) {
	total := 0
	for _, p := range patterns {
		n, err := executeCopyPattern(ctx, p, destRoot, onCopy)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func executeCopyPattern(ctx context.Context, p CopyPattern, destRoot string, onCopy func(p CopyPattern, from, to string)) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(p.Context), p.Glob, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("copyFile: glob %q in %s: %w", p.Glob, p.Context, err)
	}
	matches = filterIgnored(matches, p.Ignore)

	if p.ExplicitFileName != "" && len(matches) > 1 {
		return 0, fmt.Errorf("copyFile: explicitFileName requires the glob to resolve to a single file [input: %s]", p.Context)
	}

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		rel := m
		if p.ExplicitFileName != "" {
			rel = p.ExplicitFileName
		}
		from := filepath.Join(p.Context, filepath.FromSlash(m))
		to := filepath.Join(destRoot, filepath.FromSlash(p.To), filepath.FromSlash(rel))
		if r, err := filepath.Rel(destRoot, to); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return i, fmt.Errorf("copyFile: %s resolves outside of the output path", rel)
		}
		if err := packager.CopyFile(from, to); err != nil {
			return i, fmt.Errorf("copyFile: %w", err)
		}
		if onCopy != nil {
			onCopy(p, from, to)
		}
	}
	return len(matches), nil
}

func filterIgnored(matches, ignore []string) []string {
	out := matches[:0]
	for _, m := range matches {
		skip := false
		for _, pattern := range ignore {
			if ok, _ := doublestar.Match(pattern, m); ok {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, m)
		}
	}
	return out
}

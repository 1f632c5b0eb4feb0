package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

const selectorAffected = "affected"

type affectedConfig struct {
	Base               string `json:"base"`
	IncludeUncommitted bool   `json:"includeUncommitted"`
}

func affectedJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorAffected,
		Schema:      schema("affected.json"),
		Description: "Skip entry points without changes since a git revision (task arg affected=<rev>)",
		Hooks: hooks.HooksConfig{
			hooks.ConfigInit: {Before: hooks.Handler(skipUnaffected)},
		},
	}
}

// skipUnaffected marks entry points without changed sources done so the
// entry stages never run for them. A changed manifest affects every entry.
func skipUnaffected(_ context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg affectedConfig
	if err := tc.DecodeJobArgs(selectorAffected, &cfg); err != nil {
		return nil, err
	}
	if rev := tc.TaskArg("affected"); rev != "" {
		cfg.Base = rev
	}
	if cfg.Base == "" {
		cfg.Base = "HEAD"
	}
	pkg := packager.PackageOf(tc.Graph)
	if pkg == nil {
		return nil, fmt.Errorf("affected: graph has no package node")
	}

	changed, err := ChangedFiles(pkg.Root, cfg.Base, cfg.IncludeUncommitted)
	if err != nil {
		return nil, err
	}
	log := tc.Logger()
	if slices.Contains(changed, realPath(pkg.ManifestPath)) {
		log.Info("Manifest changed; building every entry point")
		return nil, nil
	}

	skipped := 0
	for _, n := range tc.Graph.Filter(graph.IsEntryPointQueued) {
		ep := packager.EntryPointOf(n)
		if ep == nil || entryAffected(ep, changed) {
			continue
		}
		n.State = graph.StateDone
		skipped++
		log.Debug("Entry point unaffected", logfields.Entry(ep.ModuleID))
	}
	log.Info("Affected entry points resolved",
		slog.String("base", cfg.Base),
		logfields.Count(len(tc.Graph.Filter(graph.IsEntryPointQueued))),
		slog.Int("skipped", skipped))
	return nil, nil
}

func entryAffected(ep *packager.EntryPoint, changed []string) bool {
	src := realPath(ep.SourceDir)
	excluded := make([]string, 0, len(ep.Exclude))
	for _, e := range ep.Exclude {
		excluded = append(excluded, realPath(e))
	}
	for _, f := range changed {
		if !within(src, f) {
			continue
		}
		owned := true
		for _, e := range excluded {
			if within(e, f) {
				owned = false
				break
			}
		}
		if owned {
			return true
		}
	}
	return false
}

// ChangedFiles returns the absolute paths that differ between base and HEAD
// of the repository containing dir, plus uncommitted and untracked files
// when includeUncommitted is set.
func ChangedFiles(dir, base string, includeUncommitted bool) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("affected: open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("affected: worktree: %w", err)
	}
	root := realPath(wt.Filesystem.Root())

	seen := make(map[string]struct{})
	add := func(rel string) {
		if rel != "" {
			seen[filepath.Join(root, filepath.FromSlash(rel))] = struct{}{}
		}
	}

	headTree, err := treeAt(repo, "HEAD")
	if err != nil {
		return nil, err
	}
	baseTree, err := treeAt(repo, base)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("affected: diff %s..HEAD: %w", base, err)
	}
	for _, c := range changes {
		add(c.From.Name)
		add(c.To.Name)
	}

	if includeUncommitted {
		status, err := wt.Status()
		if err != nil {
			return nil, fmt.Errorf("affected: status: %w", err)
		}
		for file, s := range status {
			if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
				add(file)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out, nil
}

func treeAt(repo *git.Repository, rev string) (*object.Tree, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("affected: resolve %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("affected: commit %s: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("affected: tree %s: %w", rev, err)
	}
	return tree, nil
}

// realPath resolves symlinks so temp dirs compare equal to worktree paths.
func realPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r
	}
	return abs
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

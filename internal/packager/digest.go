package packager

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"lukechampine.com/blake3"

	"git.home.luguber.info/inful/packhooks/internal/watch"
)

// FileDigest returns the hex BLAKE3-256 digest of a file.
func FileDigest(path string) (string, int64, error) {
	f, err := os.Open(path) // #nosec G304 -- source files discovered by the packager
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New(32, nil)
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// AnalyseSources lists every regular file below dir, skipping excluded
// directories and files the watcher would ignore. Paths are slash-separated
// and sorted.
func AnalyseSources(ctx context.Context, dir string, exclude []string) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (slices.Contains(exclude, path) || watch.ShouldIgnore(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || watch.ShouldIgnore(path) {
			return nil
		}
		digest, size, err := FileDigest(path)
		if err != nil {
			return fmt.Errorf("digest %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, SourceFile{Path: filepath.ToSlash(rel), Size: size, Digest: digest})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b SourceFile) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

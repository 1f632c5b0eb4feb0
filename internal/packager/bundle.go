package packager

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// BundleFormat selects the archive written by BundleEmit.
type BundleFormat string

const (
	BundleTarGz  BundleFormat = "tgz"
	BundleTarZst BundleFormat = "tzst"
	BundleTarXz  BundleFormat = "txz"
	BundleNone   BundleFormat = "none"
)

// ParseBundleFormat accepts the format names and their common file extensions.
func ParseBundleFormat(s string) (BundleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tgz", "tar.gz", "gzip":
		return BundleTarGz, nil
	case "tzst", "tar.zst", "zstd":
		return BundleTarZst, nil
	case "txz", "tar.xz", "xz":
		return BundleTarXz, nil
	case "none":
		return BundleNone, nil
	}
	return "", fmt.Errorf("unsupported bundle format %q", s)
}

// Extension returns the archive file extension.
func (f BundleFormat) Extension() string {
	switch f {
	case BundleTarZst:
		return ".tar.zst"
	case BundleTarXz:
		return ".tar.xz"
	case BundleNone:
		return ""
	default:
		return ".tgz"
	}
}

// writeBundle archives every regular file under srcDir into dest.
func writeBundle(format BundleFormat, srcDir, dest string) (err error) {
	out, err := os.Create(dest) // #nosec G304 -- destination is inside the package output directory
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	var cw io.WriteCloser
	switch format {
	case BundleTarZst:
		cw, err = zstd.NewWriter(out)
	case BundleTarXz:
		cw, err = xz.NewWriter(out)
	default:
		cw = pgzip.NewWriter(out)
	}
	if err != nil {
		return fmt.Errorf("create %s writer: %w", format, err)
	}

	tw := tar.NewWriter(cw)
	walkErr := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join("package", rel))
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path) // #nosec G304 -- walking the compiled output directory
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = cw.Close()
		return fmt.Errorf("add files to bundle: %w", walkErr)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finish %s stream: %w", format, err)
	}
	return nil
}

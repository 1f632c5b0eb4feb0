package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeProject lays out files (relative path -> content) under a temp dir and
// returns the manifest path.
func writeProject(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestFile), []byte(manifest), 0o600))
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return filepath.Join(root, ManifestFile)
}

const twoEntryManifest = `name: "@acme/widgets"
version: 1.2.3
entryPoints:
  - name: testing
    source: src/testing
  - name: forms
    source: forms
`

func twoEntryFiles() map[string]string {
	return map[string]string{
		"src/index.js":         "export * from './widget';\n",
		"src/widget.js":        "export const widget = 1;\n",
		"src/.hidden":          "ignored",
		"src/testing/index.js": "export const fake = true;\n",
		"forms/index.js":       "export const form = {};\n",
	}
}

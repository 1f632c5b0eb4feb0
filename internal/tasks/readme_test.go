package tasks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

func TestReadme_RendersPerEntry(t *testing.T) {
	files := widgetsFiles()
	files["README.md"] = "---\ntitle: Widgets\n---\n# Widgets\n\nReusable widgets.\n\nSee [forms](forms/index.js).\n"
	files["forms/README.md"] = "# Forms\n\nForm helpers.\n"
	root := writeProject(t, widgetsManifest, files)

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobReadme}})
	require.NoError(t, err)

	html, err := os.ReadFile(filepath.Join(root, "dist", "README.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
	assert.NotContains(t, string(html), "title: Widgets")

	doc := readPackageJSON(t, root)
	assert.Equal(t, "README.html", doc.Readme)
	assert.NotEmpty(t, doc.ReadmeFingerprint)
	assert.Equal(t, "Reusable widgets.", doc.Description)

	forms := readPackageJSON(t, root, "forms")
	assert.Equal(t, "Form helpers.", forms.Description)

	secondary := readPackageJSON(t, root, "testing")
	assert.Empty(t, secondary.Readme)
}

func TestReadme_Required(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobReadme},
		data: map[string]any{"readme": map[string]any{"required": true}},
	})
	require.ErrorContains(t, err, "no README.md")
}

func TestReadme_FingerprintTracksContent(t *testing.T) {
	files := widgetsFiles()
	files["README.md"] = "# One\n"
	root := writeProject(t, widgetsManifest, files)

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobReadme}})
	require.NoError(t, err)
	first := readPackageJSON(t, root).ReadmeFingerprint

	writeFiles(t, root, map[string]string{"README.md": "# Two\n"})
	_, err = runBuild(t, root, runOpts{jobs: []hooks.JobType{JobReadme}})
	require.NoError(t, err)
	assert.NotEqual(t, first, readPackageJSON(t, root).ReadmeFingerprint)
}

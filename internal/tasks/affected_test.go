package tasks

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

// committedProject writes the widgets project and commits it.
func committedProject(t *testing.T) (string, *git.Repository) {
	t.Helper()
	root := writeProject(t, widgetsManifest, widgetsFiles())
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	commitAll(t, repo, "initial")
	return root, repo
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func built(root string, parts ...string) bool {
	_, err := packager.ReadPackageJSON(filepath.Join(append([]string{root, "dist"}, append(parts, packager.PackageJSONFile)...)...))
	return err == nil
}

func TestAffected_UncommittedChange(t *testing.T) {
	root, _ := committedProject(t)
	writeFiles(t, root, map[string]string{"forms/index.js": "export const form = { v: 2 };\n"})

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobAffected}})
	require.NoError(t, err)

	assert.True(t, built(root, "forms"))
	assert.False(t, built(root))
	assert.False(t, built(root, "testing"))
}

func TestAffected_NestedSecondaryDoesNotAffectPrimary(t *testing.T) {
	root, _ := committedProject(t)
	writeFiles(t, root, map[string]string{"src/testing/helper.js": "export {};\n"})

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobAffected}})
	require.NoError(t, err)

	assert.True(t, built(root, "testing"))
	assert.False(t, built(root))
	assert.False(t, built(root, "forms"))
}

func TestAffected_ManifestChangeBuildsAll(t *testing.T) {
	root, _ := committedProject(t)
	writeFiles(t, root, map[string]string{packager.ManifestFile: widgetsManifest + "dest: out\n"})

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobAffected}})
	require.NoError(t, err)

	for _, entry := range []string{"", "forms", "testing"} {
		_, err := packager.ReadPackageJSON(filepath.Join(root, "out", entry, packager.PackageJSONFile))
		assert.NoError(t, err, entry)
	}
}

func TestAffected_CommittedRange(t *testing.T) {
	root, repo := committedProject(t)
	writeFiles(t, root, map[string]string{"src/widget.js": "export const widget = 2;\n"})
	commitAll(t, repo, "change widget")
	writeFiles(t, root, map[string]string{"forms/index.js": "// uncommitted\n"})

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobAffected},
		data: map[string]any{"affected": map[string]any{"base": "HEAD~1", "includeUncommitted": false}},
	})
	require.NoError(t, err)

	assert.True(t, built(root))
	assert.False(t, built(root, "forms"))
}

func TestAffected_TaskArgOverridesBase(t *testing.T) {
	root, repo := committedProject(t)
	writeFiles(t, root, map[string]string{"forms/index.js": "export const form = 3;\n"})
	commitAll(t, repo, "change forms")

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobAffected},
		args: "affected=HEAD~1",
	})
	require.NoError(t, err)
	assert.True(t, built(root, "forms"))
	assert.False(t, built(root, "testing"))
}

func TestAffected_CleanTreeBuildsNothing(t *testing.T) {
	root, _ := committedProject(t)

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobAffected}})
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestAffected_NotARepository(t *testing.T) {
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobAffected}})
	require.Error(t, err)
}

package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

func TestJobTable_DeclareLookupForget(t *testing.T) {
	table := NewJobTable()

	id, err := table.Declare("bump", JobMetadata{
		Selector: "bump",
		Hooks:    HooksConfig{PackageEmit: {Before: Handler(handlerA)}},
	})
	require.NoError(t, err)
	assert.Equal(t, JobType("bump"), id)

	meta, err := table.Lookup("bump")
	require.NoError(t, err)
	assert.Equal(t, "bump", meta.Selector)
	assert.Contains(t, meta.Hooks, PackageEmit)

	_, err = table.Declare("bump", JobMetadata{Selector: "other"})
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryConfig))

	table.Forget("bump")
	_, err = table.Lookup("bump")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

func TestJobTable_RejectsInvalidDeclarations(t *testing.T) {
	table := NewJobTable()

	_, err := table.Declare("", JobMetadata{Selector: "x"})
	require.Error(t, err)

	_, err = table.Declare("no-selector", JobMetadata{})
	require.Error(t, err)

	_, err = table.Declare("bad-stage", JobMetadata{Selector: "x", Hooks: HooksConfig{"Minify": {}}})
	require.Error(t, err)

	assert.Empty(t, table.Types())
}

func TestJobTable_LookupReturnsCopy(t *testing.T) {
	table := NewJobTable()
	table.MustDeclare("copy-file", JobMetadata{Selector: "copyFile", Hooks: HooksConfig{PackageEmit: {}}})

	meta, err := table.Lookup("copy-file")
	require.NoError(t, err)
	meta.Hooks[Compile] = TaskPhases{Replace: Noop}

	again, err := table.Lookup("copy-file")
	require.NoError(t, err)
	assert.NotContains(t, again.Hooks, Compile)
}

func TestJobTable_TypesSorted(t *testing.T) {
	table := NewJobTable()
	table.MustDeclare("plain-lib", JobMetadata{Selector: "plainLib"})
	table.MustDeclare("bump", JobMetadata{Selector: "bump"})
	table.MustDeclare("copy-file", JobMetadata{Selector: "copyFile"})

	assert.Equal(t, []JobType{"bump", "copy-file", "plain-lib"}, table.Types())
}

func TestDefaultJobTable(t *testing.T) {
	id := MustDeclareJob("hooks-test-default", JobMetadata{Selector: "hooksTestDefault"})
	t.Cleanup(func() { ForgetJob(id) })

	meta, err := LookupJob(id)
	require.NoError(t, err)
	assert.Equal(t, "hooksTestDefault", meta.Selector)
	assert.Contains(t, DefaultJobTable().Types(), id)
}

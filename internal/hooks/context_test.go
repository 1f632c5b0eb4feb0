package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/graph"
)

func TestTaskContext_EntryResolution(t *testing.T) {
	g := twoEntryGraph()
	g.MustGet("e2").State = graph.StateInProgress

	tc := NewTaskContext(Compile, &GlobalContext{}, g, nil)
	require.NotNil(t, tc.Entry)
	assert.Equal(t, "e2", tc.Entry.ID)
	assert.False(t, tc.IsPrimaryEntry())

	graphScoped := NewTaskContext(SourceAnalysis, &GlobalContext{}, g, nil)
	assert.Nil(t, graphScoped.Entry)
}

func TestTaskContext_JobArgs(t *testing.T) {
	args := map[string]any{
		"copyFile": map[string]any{"assets": []any{"LICENSE"}, "overwrite": true},
	}
	tc := NewTaskContext(PackageEmit, &GlobalContext{}, graph.New(), args)

	assert.Equal(t, true, tc.JobArgs("copyFile")["overwrite"])
	assert.Empty(t, tc.JobArgs("bump"))

	var cfg struct {
		Assets    []string `json:"assets"`
		Overwrite bool     `json:"overwrite"`
	}
	require.NoError(t, tc.DecodeJobArgs("copyFile", &cfg))
	assert.Equal(t, []string{"LICENSE"}, cfg.Assets)
	assert.True(t, cfg.Overwrite)
}

func TestTaskContext_TaskArg(t *testing.T) {
	global := &GlobalContext{TaskArgs: "bump=minor&dry=1"}
	tc := NewTaskContext(PackageEmit, global, graph.New(), nil)

	assert.Equal(t, "minor", tc.TaskArg("bump"))
	assert.Equal(t, "1", tc.TaskArg("dry"))
	assert.Equal(t, "", tc.TaskArg("missing"))
	assert.Same(t, global, tc.Global())
	assert.NotNil(t, tc.Logger())
}

func TestGlobalContext_MalformedTaskArgs(t *testing.T) {
	global := &GlobalContext{TaskArgs: "bump=%zz&ok=yes"}
	assert.Equal(t, "yes", global.TaskArgValues().Get("ok"))

	var nilGlobal *GlobalContext
	assert.Empty(t, nilGlobal.TaskArgValues())
	assert.NotNil(t, nilGlobal.Log())
}

package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

func TestStages_OrderAndScope(t *testing.T) {
	assert.Equal(t, []Stage{ConfigInit, SourceAnalysis, EntryPointInit, Compile, BundleEmit, PackageEmit}, Stages())
	assert.Equal(t, []Stage{ConfigInit, SourceAnalysis}, GraphStages())
	assert.Equal(t, []Stage{EntryPointInit, Compile, BundleEmit, PackageEmit}, EntryStages())
	assert.Equal(t, 3, Compile.Index())
	assert.False(t, Stage("Lint").Valid())
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"ConfigInit", ConfigInit},
		{"compile", Compile},
		{" PackageEmit ", PackageEmit},
		{"initTsConfig", ConfigInit},
		{"analyseSources", SourceAnalysis},
		{"entryPoint", EntryPointInit},
		{"compileNgc", Compile},
		{"writeBundles", BundleEmit},
		{"writePackage", PackageEmit},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStage(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStage("minify")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

package packager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/graph"
)

func TestDiscover_Ordering(t *testing.T) {
	path := writeProject(t, twoEntryManifest, twoEntryFiles())

	g, err := Discover(path)
	require.NoError(t, err)

	pkg := PackageOf(g)
	require.NotNil(t, pkg)
	assert.Equal(t, "@acme/widgets", pkg.Name)
	assert.Equal(t, "1.2.3", pkg.Version)

	var ids []string
	for _, n := range g.Filter(graph.IsEntryPoint) {
		ids = append(ids, n.ID)
		assert.Equal(t, graph.StateQueued, n.State)
	}
	assert.Equal(t, []string{"@acme/widgets", "@acme/widgets/forms", "@acme/widgets/testing"}, ids)

	primary := g.Find(graph.IsPrimary)
	require.NotNil(t, primary)
	ep := EntryPointOf(primary)
	require.NotNil(t, ep)
	root := filepath.Dir(path)
	assert.ElementsMatch(t, []string{filepath.Join(root, "forms"), filepath.Join(root, "src", "testing")}, ep.Exclude)
	assert.Len(t, g.Filter(graph.IsSecondary), 2)
}

func TestDiscover_PackageNodeDoesNotCollideWithPrimary(t *testing.T) {
	g, err := Discover(writeProject(t, "name: lib\n", nil))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	_, ok := g.Get("lib")
	assert.True(t, ok)
	_, ok = g.Get("package:lib")
	assert.True(t, ok)
}

func TestDiscover_ExcludesNestedDest(t *testing.T) {
	path := writeProject(t, "name: lib\nsource: .\ndest: build\n", nil)
	root := filepath.Dir(path)

	g, err := Discover(path)
	require.NoError(t, err)
	ep := EntryPointOf(g.Find(graph.IsPrimary))
	require.NotNil(t, ep)
	assert.Equal(t, []string{filepath.Join(root, "build")}, ep.Exclude)
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestGraph() *Graph {
	g := New()
	g.Put(NewNode("pkg", TypePackage))
	g.Put(NewNode("lib", TypeEntryPoint))
	g.Put(NewNode("lib/testing", TypeEntryPoint))
	return g
}

func TestGraph_InsertionOrder(t *testing.T) {
	g := newTestGraph()
	ids := []string{}
	for _, n := range g.Entries() {
		ids = append(ids, n.ID)
	}
	require.Equal(t, []string{"pkg", "lib", "lib/testing"}, ids)

	// Replacing keeps the original position.
	g.Put(&Node{ID: "pkg", Type: TypePackage, State: StateDone})
	require.Equal(t, "pkg", g.Entries()[0].ID)
	require.Equal(t, StateDone, g.Entries()[0].State)
	require.NotNil(t, g.Entries()[0].Data)
	require.Equal(t, 3, g.Len())
}

func TestGraph_FindAndFilter(t *testing.T) {
	g := newTestGraph()

	require.Nil(t, g.Find(IsEntryPointInProgress))
	require.Len(t, g.Filter(IsEntryPoint), 2)
	require.Equal(t, "lib", g.Find(IsEntryPointQueued).ID)

	g.MustGet("lib").State = StateInProgress
	require.Equal(t, "lib", g.Find(IsEntryPointInProgress).ID)
	require.Equal(t, "lib/testing", g.Find(IsEntryPointQueued).ID)
	require.Len(t, g.Filter(InState(StateQueued)), 2)
}

func TestGraph_Clone(t *testing.T) {
	g := newTestGraph()
	g.MustGet("lib").Data.Set("k", "v")

	c := g.Clone()
	c.MustGet("lib").State = StateDone
	c.MustGet("lib").Data.Set("k", "changed")

	require.Equal(t, StateQueued, g.MustGet("lib").State)
	require.Equal(t, "v", g.MustGet("lib").Data.Get("k"))
	require.Equal(t, "changed", c.MustGet("lib").Data.Get("k"))
}

func TestBag_Merge(t *testing.T) {
	b := Bag{}
	b.Merge("plainLib", map[string]any{"a": 1})
	b.Merge("plainLib", map[string]any{"b": 2})
	require.Equal(t, map[string]any{"a": 1, "b": 2}, b.Get("plainLib"))

	b.Delete("plainLib")
	require.Nil(t, b.Get("plainLib"))
	require.Nil(t, Bag(nil).Get("x"))
}

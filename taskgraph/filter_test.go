package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChainModel builds a -> b -> c plus a standalone task d.
func newChainModel(t *testing.T) *Model {
	t.Helper()
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	b := task("b", "B")
	b.Tags = []string{"mid"}
	m.AddTask(b)
	c := task("c", "C")
	c.AppID = "app-c"
	m.AddTask(c)
	m.AddTask(task("d", "D"))
	chain(m, "a", "b")
	chain(m, "b", "c")
	return m
}

func TestRootsFromFilterWalksUpstream(t *testing.T) {
	m := newChainModel(t)

	// Matching the leaf must surface the root of its chain
	roots := m.RootsFromFilter(Filter{TaskIDs: []string{"c"}})
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)

	// Mid-chain tag match walks up the same way
	roots = m.RootsFromFilter(Filter{TaskTags: []string{"mid"}})
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)

	// App match on the leaf
	roots = m.RootsFromFilter(Filter{AppIDs: []string{"app-c"}})
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)
}

func TestRootsFromFilterEmptyReturnsAllRoots(t *testing.T) {
	m := newChainModel(t)
	roots := m.RootsFromFilter(Filter{})
	require.Len(t, roots, 2)
	assert.Equal(t, "a", roots[0].ID)
	assert.Equal(t, "d", roots[1].ID)
}

func TestRootsFromFilterAppTags(t *testing.T) {
	m := newChainModel(t)

	// Without seeded app tags nothing matches
	assert.Empty(t, m.RootsFromFilter(Filter{AppTags: []string{"sales"}}))

	m.SetAppTags("app-c", []string{"sales"})
	roots := m.RootsFromFilter(Filter{AppTags: []string{"sales"}})
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)
}

func TestRootsFromFilterUnknownTermsIgnored(t *testing.T) {
	m := newChainModel(t)
	roots := m.RootsFromFilter(Filter{TaskIDs: []string{"nope"}, TaskTags: []string{"nope"}})
	assert.Empty(t, roots)
}

func TestSubtreeDiamondAndFlatten(t *testing.T) {
	m := New(testLogger())
	for _, id := range []string{"a", "b", "c", "d"} {
		m.AddTask(task(id, id))
	}
	chain(m, "a", "b")
	chain(m, "a", "c")
	chain(m, "b", "d")
	chain(m, "c", "d")

	root, ok := m.TaskByID("a")
	require.True(t, ok)
	sub := m.Subtree(root, 0)

	// d appears once per causal chain in the tree...
	require.Len(t, sub.Children, 2)
	require.Len(t, sub.Children[0].Children, 1)
	require.Len(t, sub.Children[1].Children, 1)
	assert.Equal(t, "d", sub.Children[0].Children[0].Task.ID)
	assert.Equal(t, "d", sub.Children[1].Children[0].Task.ID)

	// ...but only once in the flattened set
	flat := sub.Flatten()
	assert.Len(t, flat, 4)
}

func TestSubtreeCycleEmitsMarker(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))
	chain(m, "a", "b")
	chain(m, "b", "a")

	root, _ := m.TaskByID("a")
	sub := m.Subtree(root, 0)

	require.Len(t, sub.Children, 1)
	b := sub.Children[0]
	assert.Equal(t, "b", b.Task.ID)
	require.Len(t, b.Children, 1)
	assert.True(t, b.Children[0].Marker)
	assert.Equal(t, "a", b.Children[0].Task.ID)

	// Markers never contribute to the flattened task set
	assert.Len(t, sub.Flatten(), 2)
}

func TestSubtreeMaxDepth(t *testing.T) {
	m := newChainModel(t)
	root, _ := m.TaskByID("a")

	sub := m.Subtree(root, 1)
	require.Len(t, sub.Children, 1)
	assert.Empty(t, sub.Children[0].Children)
}

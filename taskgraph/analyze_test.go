package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptarmiganlabs/ctrlq/qrs"
)

func TestCircularChains(t *testing.T) {
	m := New(testLogger())
	for _, id := range []string{"a", "b", "c"} {
		m.AddTask(task(id, id))
	}
	chain(m, "a", "b")
	chain(m, "b", "a")
	chain(m, "b", "c") // dangling tail off the cycle

	pairs := m.CircularChains()
	require.Len(t, pairs, 1)
	assert.Equal(t, unorderedKey("a", "b"), unorderedKey(pairs[0].FromID, pairs[0].ToID))
}

func TestCircularChainsCleanGraph(t *testing.T) {
	m := New(testLogger())
	for _, id := range []string{"a", "b", "c"} {
		m.AddTask(task(id, id))
	}
	chain(m, "a", "b")
	chain(m, "a", "c")
	chain(m, "b", "c") // diamond-ish, still acyclic

	assert.Empty(t, m.CircularChains())
}

func TestDuplicateEdges(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))

	// Two separate events each demand a->b on success: same triple twice
	chain(m, "a", "b")
	chain(m, "a", "b")
	// Different rule state is a different triple, not a duplicate
	m.AttachComposite("b", CompositeTrigger{
		Name:  "on failure",
		Rules: []Rule{{UpstreamID: "a", State: qrs.RuleStateTaskFail}},
	})

	dups := m.DuplicateEdges()
	require.Len(t, dups, 1)
	assert.Equal(t, "a", dups[0].UpstreamID)
	assert.Equal(t, "b", dups[0].DownstreamID)
	assert.Equal(t, qrs.RuleStateTaskSuccessful, dups[0].State)
	assert.Equal(t, 2, dups[0].Count)
}

func TestIntegrityWarnings(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))
	chain(m, "a", "b")
	chain(m, "b", "a") // closes a cycle
	chain(m, "a", "b") // and duplicates a->b on success

	warnings := m.IntegrityWarnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, `circular dependency between "B" and "A"`, warnings[0])
	assert.Equal(t, `duplicate trigger: "A" starts "B" on TaskSuccessful, 2 occurrences`, warnings[1])
}

func TestIntegrityWarningsCleanGraph(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))
	chain(m, "a", "b")

	assert.Empty(t, m.IntegrityWarnings())
}

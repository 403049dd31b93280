package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func task(id, name string) *Task {
	return &Task{ID: id, Name: name, Kind: KindReload, Enabled: true}
}

// chain wires up -> down with a single success rule.
func chain(m *Model, up, down string) {
	m.AttachComposite(down, CompositeTrigger{
		Name:  "after " + up,
		Rules: []Rule{{UpstreamID: up, State: qrs.RuleStateTaskSuccessful}},
	})
}

func TestAddTaskDuplicateIDIgnored(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "First"))
	m.AddTask(task("a", "Second"))

	got, ok := m.TaskByID("a")
	require.True(t, ok)
	assert.Equal(t, "First", got.Name)
	assert.Len(t, m.Tasks(), 1)
}

func TestTombstoneReplacedByRealTask(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("down", "Downstream"))
	chain(m, "up", "down") // "up" is unknown, a tombstone is synthesized

	ghost, ok := m.TaskByID("up")
	require.True(t, ok)
	assert.True(t, ghost.Tombstone)
	assert.Len(t, m.Tombstones(), 1)

	m.AddTask(task("up", "Upstream"))
	real, ok := m.TaskByID("up")
	require.True(t, ok)
	assert.False(t, real.Tombstone)
	assert.Equal(t, "Upstream", real.Name)
	assert.Empty(t, m.Tombstones())

	// The node keeps its insertion position
	tasks := m.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "down", tasks[0].ID)
	assert.Equal(t, "up", tasks[1].ID)
}

func TestEdgesDerivedFromCompositeTriggers(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))
	m.AddTask(task("c", "C"))
	m.AttachComposite("c", CompositeTrigger{
		ID:   "ev1",
		Name: "both parents",
		Rules: []Rule{
			{UpstreamID: "a", State: qrs.RuleStateTaskSuccessful},
			{UpstreamID: "b", State: qrs.RuleStateTaskFail},
		},
	})

	edges := m.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{UpstreamID: "a", DownstreamID: "c", EventID: "ev1", EventName: "both parents", State: qrs.RuleStateTaskSuccessful}, edges[0])
	assert.Equal(t, Edge{UpstreamID: "b", DownstreamID: "c", EventID: "ev1", EventName: "both parents", State: qrs.RuleStateTaskFail}, edges[1])
}

func TestModelIndices(t *testing.T) {
	m := New(testLogger())
	a := task("a", "Nightly load")
	a.Tags = []string{"prod"}
	a.AppID = "app-1"
	b := task("b", "Nightly load")
	b.Tags = []string{"prod", "finance"}
	m.AddTask(a)
	m.AddTask(b)

	assert.Len(t, m.TasksByName("Nightly load"), 2)
	assert.Len(t, m.TasksByTag("prod"), 2)
	assert.Len(t, m.TasksByTag("finance"), 1)
	assert.Len(t, m.TasksByApp("app-1"), 1)
	assert.Empty(t, m.TasksByTag("dev"))
}

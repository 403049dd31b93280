package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptarmiganlabs/ctrlq/qrs"
)

func TestTreeCollectsScheduledTasksUnderSuperRoot(t *testing.T) {
	m := New(testLogger())
	a := task("a", "A")
	a.ScheduleTriggers = []ScheduleTrigger{{Name: "Nightly", IncrementOption: qrs.IncrementDaily}}
	m.AddTask(a)
	m.AddTask(task("b", "B"))
	chain(m, "a", "b")

	nodes := m.Tree(TreeOptions{})
	require.GreaterOrEqual(t, len(nodes), 2)

	assert.Equal(t, "Scheduled tasks", nodes[0].Text)
	require.Len(t, nodes[0].Children, 1)
	assert.Equal(t, "A", nodes[0].Children[0].Text)

	// The chain root gets its own subtree: schedule meta-node first, then
	// the downstream task annotated with the connecting event
	root := nodes[1]
	assert.Equal(t, "A", root.Text)
	require.Len(t, root.Children, 2)
	assert.Contains(t, root.Children[0].Text, "Nightly")
	assert.Contains(t, root.Children[0].Text, "daily")
	assert.Contains(t, root.Children[1].Text, "B")
	assert.Contains(t, root.Children[1].Text, "TaskSuccessful")
}

func TestTreeFromDecorations(t *testing.T) {
	m := New(testLogger())
	a := task("a", "A")
	a.Tags = []string{"prod", "sales"}
	a.AppName = "Sales data"
	a.LastStatus = "FinishedSuccess"
	a.NextExecution = "1753-01-01T00:00:00.000Z"
	m.AddTask(a)

	nodes := m.TreeFrom([]*Task{a}, TreeOptions{
		ShowID:            true,
		ShowLastStatus:    true,
		ShowAppName:       true,
		ShowNextExecution: true,
		ShowTags:          true,
	})
	require.Len(t, nodes, 1)

	text := nodes[0].Text
	assert.Contains(t, text, "id=a")
	assert.Contains(t, text, "last=FinishedSuccess")
	assert.Contains(t, text, "app=Sales data")
	assert.Contains(t, text, "tags=prod/sales")
	// The never-scheduled sentinel is suppressed
	assert.NotContains(t, text, "next=")
}

func TestTreeMarksTombstonesAndCycles(t *testing.T) {
	m := New(testLogger())
	m.AddTask(task("a", "A"))
	m.AddTask(task("b", "B"))
	chain(m, "a", "b")
	chain(m, "b", "a")
	chain(m, "ghost", "a") // unknown upstream becomes a tombstone root

	nodes := m.Tree(TreeOptions{})
	// Super-root is empty (no schedules); the tombstone is the only root
	require.Len(t, nodes, 2)
	ghost := nodes[1]
	assert.Contains(t, ghost.Text, "not found in Repository")

	// ghost -> a -> b -> circular marker back to a
	require.Len(t, ghost.Children, 1)
	a := ghost.Children[0]
	require.Len(t, a.Children, 1)
	b := a.Children[0]
	require.Len(t, b.Children, 1)
	assert.Contains(t, b.Children[0].Text, "circular reference to A")
}

func TestRuleStateName(t *testing.T) {
	assert.Equal(t, "TaskSuccessful", RuleStateName(qrs.RuleStateTaskSuccessful))
	assert.Equal(t, "TaskFail", RuleStateName(qrs.RuleStateTaskFail))
	assert.Equal(t, "state 7", RuleStateName(7))
}

func TestIncrementName(t *testing.T) {
	assert.Equal(t, "once", IncrementName(qrs.IncrementOnce))
	assert.Equal(t, "hourly", IncrementName(qrs.IncrementHourly))
	assert.Equal(t, "daily", IncrementName(qrs.IncrementDaily))
	assert.Equal(t, "weekly", IncrementName(qrs.IncrementWeekly))
	assert.Equal(t, "monthly", IncrementName(qrs.IncrementMonthly))
	assert.Equal(t, "custom", IncrementName(qrs.IncrementCustom))
}

package taskexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
	"github.com/ptarmiganlabs/ctrlq/taskimport"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

const (
	taskAID = "11111111-1111-1111-1111-111111111111"
	taskBID = "22222222-2222-2222-2222-222222222222"
	appID   = "33333333-3333-3333-3333-333333333333"
)

// newExportModel builds a scheduled reload task A and an external program
// task B whose composite trigger fires when A succeeds.
func newExportModel(t *testing.T) *taskgraph.Model {
	t.Helper()
	m := taskgraph.New(testLogger())

	a := &taskgraph.Task{
		ID: taskAID, Kind: taskgraph.KindReload, Name: "Load sales",
		Enabled: true, SessionTimeout: 1440, MaxRetries: 2,
		AppID: appID, IsPartialReload: true,
		Tags:             []string{"prod", "sales"},
		CustomProperties: []taskgraph.PropertyValue{{Name: "Dept", Value: "Sales"}},
		ScheduleTriggers: []taskgraph.ScheduleTrigger{{
			Name: "Nightly", Enabled: true,
			IncrementOption:    qrs.IncrementDaily,
			DaylightSavingTime: qrs.DaylightObserve,
			Start:              "2026-09-01T04:00:00.000Z",
			Expiration:         qrs.TimestampNoExpiration,
			FilterDescription:  []string{"*", "*", "-", "*", "*", "*", "*"},
			TimeZone:           "Europe/Stockholm",
		}},
	}
	m.AddTask(a)

	b := &taskgraph.Task{
		ID: taskBID, Kind: taskgraph.KindExternalProgram, Name: "Run batch",
		Enabled: true, SessionTimeout: 60,
		Path: `C:\tools\run.cmd`, Parameters: "--fast",
	}
	m.AddTask(b)
	m.AttachComposite(taskBID, taskgraph.CompositeTrigger{
		Name: "After sales", Enabled: true,
		TimeConstraint: qrs.TimeConstraint{Minutes: 30},
		Rules:          []taskgraph.Rule{{UpstreamID: taskAID, State: qrs.RuleStateTaskSuccessful}},
	})
	return m
}

func TestBuildEmitsOneGroupPerTask(t *testing.T) {
	m := newExportModel(t)
	table := Build(m, nil, testLogger())

	assert.Equal(t, len(exportColumns), len(table.Header))
	// A: base row + schedule row; B: base row + one rule row
	require.Len(t, table.Rows, 4)
	for _, r := range table.Rows {
		assert.Len(t, r, len(table.Header))
	}
}

func TestBuildSkipsTombstones(t *testing.T) {
	m := newExportModel(t)
	m.AttachComposite(taskAID, taskgraph.CompositeTrigger{
		Name:  "Ghost upstream",
		Rules: []taskgraph.Rule{{UpstreamID: "44444444-4444-4444-4444-444444444444", State: qrs.RuleStateTaskFail}},
	})

	table := Build(m, nil, testLogger())
	// The tombstone contributes no task group of its own...
	for _, r := range table.Rows {
		assert.NotContains(t, r[int(taskimport.ColTaskName)], "unknown")
	}
	// ...and the rule row pointing at it carries the GUID but no name
	var found bool
	for _, r := range table.Rows {
		if r[int(taskimport.ColRuleTaskID)] == "44444444-4444-4444-4444-444444444444" {
			found = true
			assert.Empty(t, r[int(taskimport.ColRuleTaskName)])
		}
	}
	assert.True(t, found)
}

// TestRoundTrip feeds the exported table straight back into the import
// parser and checks the semantics survive the trip.
func TestRoundTrip(t *testing.T) {
	m := newExportModel(t)
	table := Build(m, nil, testLogger())

	src := &taskimport.Source{Header: table.Header, Rows: table.Rows}
	src.RowNums = make([]int, len(src.Rows))
	for i := range src.RowNums {
		src.RowNums[i] = i + 2
	}

	records, err := taskimport.ParseTasks(src, taskimport.RefByName, 0, testLogger())
	require.NoError(t, err)
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, taskgraph.KindReload, a.Kind)
	assert.Equal(t, "Load sales", a.Name)
	assert.Equal(t, taskAID, a.LocalID) // Task id carries the server GUID
	assert.True(t, a.Enabled)
	assert.Equal(t, 1440, a.Timeout)
	assert.Equal(t, 2, a.Retries)
	assert.Equal(t, appID, a.AppRef)
	assert.True(t, a.PartialReload)
	assert.Equal(t, []string{"prod", "sales"}, a.Tags)
	assert.Equal(t, []taskimport.PropertyRef{{Name: "Dept", Value: "Sales"}}, a.CustomProperties)

	sched := a.ScheduleEvents()
	require.Len(t, sched, 1)
	assert.Equal(t, "Nightly", sched[0].Name)
	assert.Equal(t, qrs.IncrementDaily, sched[0].IncrementOption)
	assert.Equal(t, qrs.DaylightObserve, sched[0].DaylightSavingTime)
	assert.Equal(t, "2026-09-01T04:00:00.000Z", sched[0].Start)
	assert.Equal(t, qrs.TimestampNoExpiration, sched[0].Expiration)
	assert.Equal(t, []string{"*", "*", "-", "*", "*", "*", "*"}, sched[0].FilterDescription)
	assert.Equal(t, "Europe/Stockholm", sched[0].TimeZone)

	b := records[1]
	assert.Equal(t, taskgraph.KindExternalProgram, b.Kind)
	assert.Equal(t, `C:\tools\run.cmd`, b.Path)
	assert.Equal(t, "--fast", b.Parameters)

	comp := b.CompositeEvents()
	require.Len(t, comp, 1)
	assert.Equal(t, "After sales", comp[0].Name)
	assert.Equal(t, qrs.TimeConstraint{Minutes: 30}, comp[0].TimeConstraint)
	require.Len(t, comp[0].Rules, 1)
	assert.Equal(t, qrs.RuleStateTaskSuccessful, comp[0].Rules[0].State)
	// The rule references A by its exported GUID, resolvable either against
	// the server or against A's own row in this file
	assert.Equal(t, taskAID, comp[0].Rules[0].TaskRef)
}

func TestBuildSubsetSelection(t *testing.T) {
	m := newExportModel(t)
	a, ok := m.TaskByID(taskAID)
	require.True(t, ok)

	table := Build(m, []*taskgraph.Task{a}, testLogger())
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Load sales", table.Rows[0][int(taskimport.ColTaskName)])
}

package taskimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func fullHeader() []string {
	out := make([]string, columnCount)
	for c := Column(0); c < columnCount; c++ {
		out[c] = columnNames[c]
	}
	return out
}

// cells builds one physical row in canonical column order.
func cells(m map[Column]string) []string {
	row := make([]string, columnCount)
	for c, v := range m {
		row[c] = v
	}
	return row
}

func sourceOf(rows ...map[Column]string) *Source {
	src := &Source{Header: fullHeader()}
	for i, r := range rows {
		src.Rows = append(src.Rows, cells(r))
		src.RowNums = append(src.RowNums, i+2)
	}
	return src
}

func reloadRow(counter, name, localID string) map[Column]string {
	return map[Column]string{
		ColTaskCounter: counter,
		ColTaskType:    "Reload",
		ColTaskName:    name,
		ColTaskID:      localID,
		ColTaskEnabled: "1",
		ColTaskTimeout: "1440",
		ColTaskRetries: "0",
		ColAppID:       "f39c0a9e-8e2c-4c22-9c55-7e2a6a1c7a01",
	}
}

func TestParseTasksGroupsRowsByCounter(t *testing.T) {
	row1 := reloadRow("1", "Load sales", "1")
	row1[ColTags] = "Finance / Nightly"
	row1[ColCustomProperties] = "Dept=Sales"

	scheduleRow := map[Column]string{
		ColTaskCounter:           "1",
		ColEventCounter:          "1",
		ColEventType:             "Schema",
		ColEventName:             "Nightly",
		ColEventEnabled:          "1",
		ColSchemaIncrementOption: "daily",
		ColSchemaStart:           "2026-09-01T04:00:00.000Z",
	}
	compositeRow := map[Column]string{
		ColTaskCounter:  "2",
		ColTaskType:     "Reload",
		ColTaskName:     "Load finance",
		ColTaskID:       "2",
		ColTaskEnabled:  "1",
		ColTaskTimeout:  "30",
		ColTaskRetries:  "1",
		ColAppID:        "f39c0a9e-8e2c-4c22-9c55-7e2a6a1c7a02",
		ColEventCounter: "1",
		ColEventType:    "Composite",
		ColEventName:    "After sales",
		ColEventEnabled: "1",
		ColRuleCounter:  "1",
		ColRuleState:    "TaskSuccessful",
		ColRuleTaskID:   "1",
	}
	secondRule := map[Column]string{
		ColTaskCounter:  "2",
		ColEventCounter: "1",
		ColRuleCounter:  "2",
		ColRuleState:    "TaskFail",
		ColRuleTaskID:   "f39c0a9e-8e2c-4c22-9c55-7e2a6a1c7a99",
	}

	records, err := ParseTasks(sourceOf(row1, scheduleRow, compositeRow, secondRule), RefByName, 0, testLogger())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Load sales", first.Name)
	assert.Equal(t, taskgraph.KindReload, first.Kind)
	assert.Equal(t, []string{"Finance", "Nightly"}, first.Tags)
	require.Len(t, first.Events, 1)
	assert.False(t, first.Events[0].Composite)
	assert.Equal(t, qrs.IncrementDaily, first.Events[0].IncrementOption)

	second := records[1]
	require.Len(t, second.Events, 1)
	ev := second.Events[0]
	assert.True(t, ev.Composite)
	require.Len(t, ev.Rules, 2)
	assert.Equal(t, qrs.RuleStateTaskSuccessful, ev.Rules[0].State)
	assert.Equal(t, "1", ev.Rules[0].TaskRef)
	assert.Equal(t, qrs.RuleStateTaskFail, ev.Rules[1].State)
}

func TestParseTasksRowOrderWithinGroupIrrelevant(t *testing.T) {
	base := reloadRow("1", "T", "1")
	evA := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1", ColEventType: "Composite",
		ColEventName: "E", ColEventEnabled: "1",
		ColRuleCounter: "1", ColRuleState: "TaskSuccessful", ColRuleTaskID: "aaaaaaaa-0000-0000-0000-000000000001",
	}
	evB := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1",
		ColRuleCounter: "2", ColRuleState: "TaskFail", ColRuleTaskID: "aaaaaaaa-0000-0000-0000-000000000002",
	}

	forward, err := ParseTasks(sourceOf(base, evA, evB), RefByName, 0, testLogger())
	require.NoError(t, err)
	swapped, err := ParseTasks(sourceOf(base, evB, evA), RefByName, 0, testLogger())
	require.NoError(t, err)

	require.Len(t, forward, 1)
	require.Len(t, swapped, 1)
	require.Len(t, forward[0].Events, 1)
	require.Len(t, swapped[0].Events, 1)

	// Same rule set regardless of row order; only rule ordering may differ
	refs := func(rec TaskRecord) map[int]RuleRecord {
		out := make(map[int]RuleRecord)
		for _, r := range rec.Events[0].Rules {
			r.Row = 0
			out[r.Counter] = r
		}
		return out
	}
	assert.Equal(t, refs(forward[0]), refs(swapped[0]))
}

func TestParseTasksScheduleDefaults(t *testing.T) {
	row := reloadRow("1", "T", "1")
	delete(row, ColTaskTimeout)
	ev := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1", ColEventType: "Schema",
		ColEventName: "S", ColEventEnabled: "1",
		ColSchemaStart: "2026-09-01T04:00:00.000Z",
	}

	records, err := ParseTasks(sourceOf(row, ev), RefByName, 0, testLogger())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, defaultSessionTimeout, records[0].Timeout)

	sched := records[0].Events[0]
	assert.Equal(t, qrs.IncrementOnce, sched.IncrementOption)
	assert.Equal(t, qrs.TimestampNoExpiration, sched.Expiration)
	assert.Equal(t, []string{"*", "*", "-", "*", "*", "*", "*"}, sched.FilterDescription)
	assert.Equal(t, "UTC", sched.TimeZone)
	assert.Equal(t, qrs.DaylightObserve, sched.DaylightSavingTime)
}

func TestParseTasksLimitImportCount(t *testing.T) {
	records, err := ParseTasks(sourceOf(
		reloadRow("1", "A", "1"),
		reloadRow("2", "B", "2"),
		reloadRow("3", "C", "3"),
	), RefByName, 2, testLogger())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Name)
	assert.Equal(t, "B", records[1].Name)
}

func TestParseTasksCompositeWithoutRulesRejected(t *testing.T) {
	row := reloadRow("1", "T", "1")
	ev := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1", ColEventType: "Composite",
		ColEventName: "E", ColEventEnabled: "1",
	}
	_, err := ParseTasks(sourceOf(row, ev), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no rules")
}

func TestParseTasksCollectsAllDiagnostics(t *testing.T) {
	bad1 := reloadRow("1", "", "1") // empty name
	bad2 := reloadRow("2", "B", "2")
	bad2[ColTaskEnabled] = "yes" // not bool01
	bad3 := reloadRow("3", "C", "3")
	bad3[ColTaskType] = "Distribution" // unknown kind

	_, err := ParseTasks(sourceOf(bad1, bad2, bad3), RefByName, 0, testLogger())
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Task name")
	assert.Contains(t, msg, "Task enabled")
	assert.Contains(t, msg, "Task type")
}

func TestParseTasksExternalProgramValidation(t *testing.T) {
	ok := map[Column]string{
		ColTaskCounter:          "1",
		ColTaskType:             "External program",
		ColTaskName:             "Run batch",
		ColTaskID:               "1",
		ColTaskEnabled:          "1",
		ColTaskTimeout:          "60",
		ColTaskRetries:          "0",
		ColExtProgramPath:       `C:\tools\run.cmd`,
		ColExtProgramParameters: `--env prod "with spaces"`,
	}
	records, err := ParseTasks(sourceOf(ok), RefByName, 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, taskgraph.KindExternalProgram, records[0].Kind)

	missingPath := map[Column]string{
		ColTaskCounter: "1", ColTaskType: "External program", ColTaskName: "X",
		ColTaskID: "1", ColTaskEnabled: "1", ColTaskTimeout: "60", ColTaskRetries: "0",
	}
	_, err = ParseTasks(sourceOf(missingPath), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ext program path")

	strayApp := map[Column]string{
		ColTaskCounter: "1", ColTaskType: "External program", ColTaskName: "X",
		ColTaskID: "1", ColTaskEnabled: "1", ColTaskTimeout: "60", ColTaskRetries: "0",
		ColExtProgramPath: "run.cmd", ColAppID: "f39c0a9e-8e2c-4c22-9c55-7e2a6a1c7a01",
	}
	_, err = ParseTasks(sourceOf(strayApp), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed on external program tasks")

	badQuotes := map[Column]string{
		ColTaskCounter: "1", ColTaskType: "External program", ColTaskName: "X",
		ColTaskID: "1", ColTaskEnabled: "1", ColTaskTimeout: "60", ColTaskRetries: "0",
		ColExtProgramPath: "run.cmd", ColExtProgramParameters: `--flag "unterminated`,
	}
	_, err = ParseTasks(sourceOf(badQuotes), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbalanced quoting")
}

func TestParseTasksExpirationBeforeStartRejected(t *testing.T) {
	row := reloadRow("1", "T", "1")
	ev := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1", ColEventType: "Schema",
		ColEventName: "S", ColEventEnabled: "1",
		ColSchemaStart:      "2026-09-01T04:00:00.000Z",
		ColSchemaExpiration: "2026-08-01T04:00:00.000Z",
	}
	_, err := ParseTasks(sourceOf(row, ev), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before start")
}

func TestParseTasksConflictingRuleMergeRejected(t *testing.T) {
	row := reloadRow("1", "T", "1")
	r1 := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1", ColEventType: "Composite",
		ColEventName: "E", ColEventEnabled: "1",
		ColRuleCounter: "1", ColRuleState: "TaskSuccessful", ColRuleTaskID: "aaaaaaaa-0000-0000-0000-000000000001",
	}
	r2 := map[Column]string{
		ColTaskCounter: "1", ColEventCounter: "1",
		ColRuleCounter: "1", ColRuleState: "TaskFail", ColRuleTaskID: "aaaaaaaa-0000-0000-0000-000000000001",
	}
	_, err := ParseTasks(sourceOf(row, r1, r2), RefByName, 0, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with earlier row")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a / b / c"))
	assert.Equal(t, []string{"solo"}, splitList("solo"))
	assert.Empty(t, splitList("  /  / "))
}

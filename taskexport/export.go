// Package taskexport turns the in-memory task graph back into the same
// tabular grammar the importer reads, so an export from one environment
// can be replayed into another without edits.
package taskexport

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
	"github.com/ptarmiganlabs/ctrlq/taskimport"
)

// Table is an exported task definition table: the canonical header plus
// one row group per task.
type Table struct {
	Header []string
	Rows   [][]string

	model *taskgraph.Model
}

// Build flattens tasks into the import grammar. Task and event counters
// are re-derived sequentially; the Task id column carries the server GUID
// so composite rules can reference tasks across the export. Tombstones
// are skipped: they have no definition to export. tasks selects a subset;
// nil exports the whole model.
func Build(m *taskgraph.Model, tasks []*taskgraph.Task, log *zap.SugaredLogger) *Table {
	if tasks == nil {
		tasks = m.Tasks()
	}
	t := &Table{Header: canonicalHeader(), model: m}

	exported := 0
	for _, task := range tasks {
		if task.Tombstone {
			continue
		}
		exported++
		t.appendTask(task, exported)
	}
	log.Named("task.export").Infow("Task definitions exported", "tasks", exported)
	return t
}

func canonicalHeader() []string {
	header := make([]string, 0, len(exportColumns))
	for _, c := range exportColumns {
		header = append(header, c.Name())
	}
	return header
}

// exportColumns is the canonical column order, identical to position-mode
// import resolution.
var exportColumns = []taskimport.Column{
	taskimport.ColTaskCounter, taskimport.ColTaskType, taskimport.ColTaskName,
	taskimport.ColTaskID, taskimport.ColTaskEnabled, taskimport.ColTaskTimeout,
	taskimport.ColTaskRetries, taskimport.ColAppID, taskimport.ColPartialReload,
	taskimport.ColManuallyTriggered, taskimport.ColExtProgramPath,
	taskimport.ColExtProgramParameters, taskimport.ColTags,
	taskimport.ColCustomProperties, taskimport.ColEventCounter,
	taskimport.ColEventType, taskimport.ColEventName, taskimport.ColEventEnabled,
	taskimport.ColSchemaIncrementOption, taskimport.ColSchemaIncrementDescription,
	taskimport.ColDaylightSavingsTime, taskimport.ColSchemaStart,
	taskimport.ColSchemaExpiration, taskimport.ColSchemaFilterDescription,
	taskimport.ColSchemaTimeZone, taskimport.ColTimeConstraintSeconds,
	taskimport.ColTimeConstraintMinutes, taskimport.ColTimeConstraintHours,
	taskimport.ColTimeConstraintDays, taskimport.ColRuleCounter,
	taskimport.ColRuleState, taskimport.ColRuleTaskName, taskimport.ColRuleTaskID,
}

// row is one output row under construction, indexed by logical column.
type row map[taskimport.Column]string

func (t *Table) emit(r row) {
	out := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		out[i] = r[c]
	}
	t.Rows = append(t.Rows, out)
}

func (t *Table) appendTask(task *taskgraph.Task, counter int) {
	base := row{
		taskimport.ColTaskCounter: strconv.Itoa(counter),
		taskimport.ColTaskType:    task.Kind.String(),
		taskimport.ColTaskName:    task.Name,
		taskimport.ColTaskID:      task.ID,
		taskimport.ColTaskEnabled: bool01(task.Enabled),
		taskimport.ColTaskTimeout: strconv.Itoa(task.SessionTimeout),
		taskimport.ColTaskRetries: strconv.Itoa(task.MaxRetries),
		taskimport.ColTags:        joinList(task.Tags),
	}
	if props := formatProperties(task.CustomProperties); props != "" {
		base[taskimport.ColCustomProperties] = props
	}
	switch task.Kind {
	case taskgraph.KindReload:
		base[taskimport.ColAppID] = task.AppID
		base[taskimport.ColPartialReload] = bool01(task.IsPartialReload)
		base[taskimport.ColManuallyTriggered] = bool01(task.IsManuallyTriggered)
	case taskgraph.KindExternalProgram:
		base[taskimport.ColExtProgramPath] = task.Path
		base[taskimport.ColExtProgramParameters] = task.Parameters
	}
	t.emit(base)

	evCounter := 0
	for _, trig := range task.ScheduleTriggers {
		evCounter++
		t.emit(scheduleRow(counter, evCounter, trig))
	}
	for _, trig := range task.CompositeTriggers {
		evCounter++
		t.appendComposite(counter, evCounter, trig)
	}
}

func scheduleRow(taskCounter, evCounter int, trig taskgraph.ScheduleTrigger) row {
	r := row{
		taskimport.ColTaskCounter:  strconv.Itoa(taskCounter),
		taskimport.ColEventCounter: strconv.Itoa(evCounter),
		taskimport.ColEventType:    "Schema",
		taskimport.ColEventName:    trig.Name,
		taskimport.ColEventEnabled: bool01(trig.Enabled),
	}
	r[taskimport.ColSchemaIncrementOption] = taskgraph.IncrementName(trig.IncrementOption)
	r[taskimport.ColSchemaIncrementDescription] = trig.IncrementDescription
	r[taskimport.ColDaylightSavingsTime] = daylightName(trig.DaylightSavingTime)
	r[taskimport.ColSchemaStart] = trig.Start
	r[taskimport.ColSchemaExpiration] = trig.Expiration
	r[taskimport.ColSchemaFilterDescription] = strings.Join(trig.FilterDescription, " ")
	r[taskimport.ColSchemaTimeZone] = trig.TimeZone
	return r
}

// appendComposite emits one row per rule. The first row also carries the
// time constraint; the importer merges rows sharing the event counter.
func (t *Table) appendComposite(taskCounter, evCounter int, trig taskgraph.CompositeTrigger) {
	for i, rule := range trig.Rules {
		r := row{
			taskimport.ColTaskCounter:  strconv.Itoa(taskCounter),
			taskimport.ColEventCounter: strconv.Itoa(evCounter),
			taskimport.ColEventType:    "Composite",
			taskimport.ColEventName:    trig.Name,
			taskimport.ColEventEnabled: bool01(trig.Enabled),
			taskimport.ColRuleCounter:  strconv.Itoa(i + 1),
			taskimport.ColRuleState:    taskgraph.RuleStateName(rule.State),
			taskimport.ColRuleTaskID:   rule.UpstreamID,
		}
		if up, ok := t.model.TaskByID(rule.UpstreamID); ok && !up.Tombstone {
			r[taskimport.ColRuleTaskName] = up.Name
		}
		if i == 0 {
			r[taskimport.ColTimeConstraintSeconds] = strconv.Itoa(trig.TimeConstraint.Seconds)
			r[taskimport.ColTimeConstraintMinutes] = strconv.Itoa(trig.TimeConstraint.Minutes)
			r[taskimport.ColTimeConstraintHours] = strconv.Itoa(trig.TimeConstraint.Hours)
			r[taskimport.ColTimeConstraintDays] = strconv.Itoa(trig.TimeConstraint.Days)
		}
		t.emit(r)
	}
}

func bool01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func joinList(items []string) string {
	return strings.Join(items, " / ")
}

func formatProperties(props []taskgraph.PropertyValue) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, " / ")
}

func daylightName(v int) string {
	switch v {
	case qrs.DaylightPermanentStandard:
		return "permanentStandard"
	case qrs.DaylightPermanentDaylight:
		return "permanentDaylight"
	default:
		return "observe"
	}
}

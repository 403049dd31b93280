package taskimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// diagnostics collects per-row validation errors. The parser reports all
// problems of a source in one pass; the import aborts before Phase A when
// any are present.
type diagnostics struct {
	errs []error
}

func (d *diagnostics) addf(row int, col Column, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.errs = append(d.errs,
		errors.ValidationErrorf("row %d, column %q: %s", row, col.Name(), msg))
}

func (d *diagnostics) err() error {
	if len(d.errs) == 0 {
		return nil
	}
	return errors.Join(d.errs...)
}

// defaultSessionTimeout is the QSEoW default task session timeout in
// minutes, applied when the source leaves the column empty.
const defaultSessionTimeout = 1440

// Parser turns a tabular source into task records.
type Parser struct {
	cols  *ColumnResolver
	diags diagnostics
	log   *zap.SugaredLogger
}

// ParseTasks parses a task source. Rows are grouped by Task counter; the
// first row of a group carries the top-level task fields, later rows add
// events (grouped by Event counter) and rules (grouped by Rule counter).
// Row order within a group does not affect the result. With limit > 0
// only groups with Task counter <= limit are retained.
func ParseTasks(src *Source, mode RefMode, limit int, log *zap.SugaredLogger) ([]TaskRecord, error) {
	cols, err := NewColumnResolver(src.Header, mode)
	if err != nil {
		return nil, err
	}
	p := &Parser{cols: cols, log: log.Named("task.parser")}

	byCounter := make(map[int]*TaskRecord)
	var order []int

	for i, row := range src.Rows {
		rowNum := src.RowNums[i]

		counter, ok := p.intCell(row, rowNum, ColTaskCounter, true)
		if !ok {
			continue
		}
		if counter < 1 {
			p.diags.addf(rowNum, ColTaskCounter, "must be >= 1, got %d", counter)
			continue
		}
		if limit > 0 && counter > limit {
			continue
		}

		rec, exists := byCounter[counter]
		if !exists {
			rec = p.parseTaskRow(row, rowNum, counter)
			byCounter[counter] = rec
			order = append(order, counter)
		}
		p.parseEventCells(rec, row, rowNum)
	}

	records := make([]TaskRecord, 0, len(order))
	for _, counter := range order {
		rec := byCounter[counter]
		p.finalize(rec)
		records = append(records, *rec)
	}

	if err := p.diags.err(); err != nil {
		return nil, err
	}
	p.log.Infow("Task source parsed", "tasks", len(records))
	return records, nil
}

// parseTaskRow reads the top-level task fields from the first row of a group.
func (p *Parser) parseTaskRow(row []string, rowNum, counter int) *TaskRecord {
	rec := &TaskRecord{Counter: counter, Row: rowNum}

	kindCell, _ := p.cols.Get(row, ColTaskType)
	switch kindCell {
	case "Reload":
		rec.Kind = taskgraph.KindReload
	case "External program":
		rec.Kind = taskgraph.KindExternalProgram
	default:
		p.diags.addf(rowNum, ColTaskType, "must be 'Reload' or 'External program', got %q", kindCell)
	}

	rec.Name, _ = p.cols.Get(row, ColTaskName)
	if rec.Name == "" {
		p.diags.addf(rowNum, ColTaskName, "must not be empty")
	}
	rec.LocalID, _ = p.cols.Get(row, ColTaskID)
	rec.Enabled = p.boolCell(row, rowNum, ColTaskEnabled)

	if cell, _ := p.cols.Get(row, ColTaskTimeout); cell == "" {
		rec.Timeout = defaultSessionTimeout
	} else if timeout, ok := p.intCell(row, rowNum, ColTaskTimeout, false); ok {
		if timeout <= 0 {
			p.diags.addf(rowNum, ColTaskTimeout, "must be > 0 minutes, got %d", timeout)
		}
		rec.Timeout = timeout
	}
	if retries, ok := p.intCell(row, rowNum, ColTaskRetries, false); ok {
		if retries < 0 {
			p.diags.addf(rowNum, ColTaskRetries, "must be >= 0, got %d", retries)
		}
		rec.Retries = retries
	}

	rec.AppRef, _ = p.cols.Get(row, ColAppID)
	rec.PartialReload = p.boolCell(row, rowNum, ColPartialReload)
	rec.ManuallyTriggered = p.boolCell(row, rowNum, ColManuallyTriggered)
	rec.Path, _ = p.cols.Get(row, ColExtProgramPath)
	rec.Parameters, _ = p.cols.Get(row, ColExtProgramParameters)

	if tags, ok := p.cols.Get(row, ColTags); ok && tags != "" {
		rec.Tags = splitList(tags)
	}
	if props, ok := p.cols.Get(row, ColCustomProperties); ok && props != "" {
		rec.CustomProperties = p.parseProperties(props, rowNum, ColCustomProperties)
	}

	// Kind determines which payload fields are meaningful; stray fields
	// in the wrong kind are a validation error
	partialCell, _ := p.cols.Get(row, ColPartialReload)
	switch rec.Kind {
	case taskgraph.KindReload:
		if rec.AppRef == "" {
			p.diags.addf(rowNum, ColAppID, "required for reload tasks")
		}
		if rec.Path != "" {
			p.diags.addf(rowNum, ColExtProgramPath, "not allowed on reload tasks")
		}
		if rec.Parameters != "" {
			p.diags.addf(rowNum, ColExtProgramParameters, "not allowed on reload tasks")
		}
	case taskgraph.KindExternalProgram:
		if rec.Path == "" {
			p.diags.addf(rowNum, ColExtProgramPath, "required for external program tasks")
		}
		if rec.AppRef != "" {
			p.diags.addf(rowNum, ColAppID, "not allowed on external program tasks")
		}
		if partialCell != "" {
			p.diags.addf(rowNum, ColPartialReload, "not allowed on external program tasks")
		}
		if rec.Parameters != "" {
			if _, err := shellquote.Split(rec.Parameters); err != nil {
				p.diags.addf(rowNum, ColExtProgramParameters, "unbalanced quoting: %v", err)
			}
		}
	}

	return rec
}

// parseEventCells reads the event and rule portion of a row, if present.
func (p *Parser) parseEventCells(rec *TaskRecord, row []string, rowNum int) {
	evCell, _ := p.cols.Get(row, ColEventCounter)
	if evCell == "" {
		return
	}
	evCounter, err := strconv.Atoi(evCell)
	if err != nil || evCounter < 1 {
		p.diags.addf(rowNum, ColEventCounter, "must be a positive integer, got %q", evCell)
		return
	}

	var ev *EventRecord
	for i := range rec.Events {
		if rec.Events[i].Counter == evCounter {
			ev = &rec.Events[i]
			break
		}
	}
	if ev == nil {
		parsed := p.parseEventRow(row, rowNum, evCounter)
		if parsed == nil {
			return
		}
		rec.Events = append(rec.Events, *parsed)
		ev = &rec.Events[len(rec.Events)-1]
	}

	ruleCell, _ := p.cols.Get(row, ColRuleCounter)
	if ruleCell == "" {
		return
	}
	if !ev.Composite {
		p.diags.addf(rowNum, ColRuleCounter, "rules are only valid on composite events")
		return
	}
	p.parseRuleCells(ev, row, rowNum, ruleCell)
}

func (p *Parser) parseEventRow(row []string, rowNum, evCounter int) *EventRecord {
	ev := &EventRecord{Counter: evCounter, Row: rowNum}

	typeCell, _ := p.cols.Get(row, ColEventType)
	switch typeCell {
	case "Schema":
		ev.Composite = false
	case "Composite":
		ev.Composite = true
	default:
		p.diags.addf(rowNum, ColEventType, "must be 'Schema' or 'Composite', got %q", typeCell)
		return nil
	}

	ev.Name, _ = p.cols.Get(row, ColEventName)
	if ev.Name == "" {
		p.diags.addf(rowNum, ColEventName, "must not be empty")
	}
	ev.Enabled = p.boolCell(row, rowNum, ColEventEnabled)

	if ev.Composite {
		ev.TimeConstraint = qrs.TimeConstraint{
			Seconds: p.nonNegativeCell(row, rowNum, ColTimeConstraintSeconds),
			Minutes: p.nonNegativeCell(row, rowNum, ColTimeConstraintMinutes),
			Hours:   p.nonNegativeCell(row, rowNum, ColTimeConstraintHours),
			Days:    p.nonNegativeCell(row, rowNum, ColTimeConstraintDays),
		}
		return ev
	}

	p.parseScheduleFields(ev, row, rowNum)
	return ev
}

func (p *Parser) parseScheduleFields(ev *EventRecord, row []string, rowNum int) {
	incCell, _ := p.cols.Get(row, ColSchemaIncrementOption)
	inc, err := parseIncrementOption(incCell)
	if err != nil {
		p.diags.addf(rowNum, ColSchemaIncrementOption, "%v", err)
	}
	ev.IncrementOption = inc

	ev.IncrementDescription, _ = p.cols.Get(row, ColSchemaIncrementDescription)
	if ev.IncrementDescription != "" && !validIncrementDescription(ev.IncrementDescription) {
		p.diags.addf(rowNum, ColSchemaIncrementDescription,
			"must be four integers (minutes hours days weeks), got %q", ev.IncrementDescription)
	}

	dstCell, _ := p.cols.Get(row, ColDaylightSavingsTime)
	dst, err := parseDaylightSaving(dstCell)
	if err != nil {
		p.diags.addf(rowNum, ColDaylightSavingsTime, "%v", err)
	}
	ev.DaylightSavingTime = dst

	ev.Start, _ = p.cols.Get(row, ColSchemaStart)
	if ev.Start == "" {
		p.diags.addf(rowNum, ColSchemaStart, "required for schema events")
	} else if _, err := parseTimestamp(ev.Start); err != nil {
		p.diags.addf(rowNum, ColSchemaStart, "invalid timestamp %q", ev.Start)
	}

	ev.Expiration, _ = p.cols.Get(row, ColSchemaExpiration)
	if ev.Expiration == "" {
		ev.Expiration = qrs.TimestampNoExpiration
	}
	if expiration, err := parseTimestamp(ev.Expiration); err != nil {
		p.diags.addf(rowNum, ColSchemaExpiration, "invalid timestamp %q", ev.Expiration)
	} else if start, err := parseTimestamp(ev.Start); err == nil && expiration.Before(start) {
		p.diags.addf(rowNum, ColSchemaExpiration, "expiration %q before start %q", ev.Expiration, ev.Start)
	}

	if filter, ok := p.cols.Get(row, ColSchemaFilterDescription); ok && filter != "" {
		fields := strings.Fields(filter)
		if len(fields) != 7 {
			p.diags.addf(rowNum, ColSchemaFilterDescription,
				"must have seven fields, got %d in %q", len(fields), filter)
		}
		ev.FilterDescription = fields
	} else {
		ev.FilterDescription = []string{"*", "*", "-", "*", "*", "*", "*"}
	}

	ev.TimeZone, _ = p.cols.Get(row, ColSchemaTimeZone)
	if ev.TimeZone == "" {
		ev.TimeZone = "UTC"
	}
}

func (p *Parser) parseRuleCells(ev *EventRecord, row []string, rowNum int, ruleCell string) {
	ruleCounter, err := strconv.Atoi(ruleCell)
	if err != nil || ruleCounter < 1 {
		p.diags.addf(rowNum, ColRuleCounter, "must be a positive integer, got %q", ruleCell)
		return
	}

	stateCell, _ := p.cols.Get(row, ColRuleState)
	var state int
	switch stateCell {
	case "TaskSuccessful":
		state = qrs.RuleStateTaskSuccessful
	case "TaskFail":
		state = qrs.RuleStateTaskFail
	case "":
		state = 0
	default:
		p.diags.addf(rowNum, ColRuleState, "must be 'TaskSuccessful' or 'TaskFail', got %q", stateCell)
		return
	}

	taskName, _ := p.cols.Get(row, ColRuleTaskName)
	taskRef, _ := p.cols.Get(row, ColRuleTaskID)

	// Rows with identical (task, event, rule) counters merge into one
	// rule: later rows fill fields the first left empty
	for i := range ev.Rules {
		r := &ev.Rules[i]
		if r.Counter != ruleCounter {
			continue
		}
		if r.State == 0 {
			r.State = state
		} else if state != 0 && state != r.State {
			p.diags.addf(rowNum, ColRuleState, "conflicts with earlier row for rule %d", ruleCounter)
		}
		if r.TaskName == "" {
			r.TaskName = taskName
		}
		if r.TaskRef == "" {
			r.TaskRef = taskRef
		} else if taskRef != "" && taskRef != r.TaskRef {
			p.diags.addf(rowNum, ColRuleTaskID, "conflicts with earlier row for rule %d", ruleCounter)
		}
		return
	}

	ev.Rules = append(ev.Rules, RuleRecord{
		Counter:  ruleCounter,
		State:    state,
		TaskName: taskName,
		TaskRef:  taskRef,
		Row:      rowNum,
	})
}

// finalize runs the cross-row validations of a completed task group.
func (p *Parser) finalize(rec *TaskRecord) {
	for _, ev := range rec.Events {
		if !ev.Composite {
			continue
		}
		if len(ev.Rules) == 0 {
			p.diags.addf(ev.Row, ColEventCounter,
				"composite event %q has no rules (task counter %d)", ev.Name, rec.Counter)
		}
		for _, r := range ev.Rules {
			if r.State == 0 {
				p.diags.addf(r.Row, ColRuleState, "missing for rule %d of event %q", r.Counter, ev.Name)
			}
			if r.TaskRef == "" {
				p.diags.addf(r.Row, ColRuleTaskID, "missing for rule %d of event %q", r.Counter, ev.Name)
			}
		}
	}
}

// intCell coerces an integer cell. Empty means absent: an error when the
// column is required, zero value otherwise.
func (p *Parser) intCell(row []string, rowNum int, col Column, required bool) (int, bool) {
	cell, _ := p.cols.Get(row, col)
	if cell == "" {
		if required {
			p.diags.addf(rowNum, col, "must not be empty")
		}
		return 0, !required
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		p.diags.addf(rowNum, col, "must be an integer, got %q", cell)
		return 0, false
	}
	return n, true
}

// boolCell coerces a bool01 cell: "1" is true, "0" and empty are false.
func (p *Parser) boolCell(row []string, rowNum int, col Column) bool {
	cell, _ := p.cols.Get(row, col)
	switch cell {
	case "1":
		return true
	case "0", "":
		return false
	default:
		p.diags.addf(rowNum, col, "must be 0, 1 or empty, got %q", cell)
		return false
	}
}

func (p *Parser) nonNegativeCell(row []string, rowNum int, col Column) int {
	n, _ := p.intCell(row, rowNum, col, false)
	if n < 0 {
		p.diags.addf(rowNum, col, "must be >= 0, got %d", n)
		return 0
	}
	return n
}

// splitList splits a "a / b / c" list cell.
func splitList(cell string) []string {
	parts := strings.Split(cell, "/")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseProperties splits a "name=value / name=value" cell.
func (p *Parser) parseProperties(cell string, rowNum int, col Column) []PropertyRef {
	var out []PropertyRef
	for _, part := range splitList(cell) {
		name, value, found := strings.Cut(part, "=")
		if !found || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			p.diags.addf(rowNum, col, "expected name=value, got %q", part)
			continue
		}
		out = append(out, PropertyRef{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return out
}

func parseIncrementOption(cell string) (int, error) {
	switch strings.ToLower(cell) {
	case "once", "":
		return qrs.IncrementOnce, nil
	case "hourly":
		return qrs.IncrementHourly, nil
	case "daily":
		return qrs.IncrementDaily, nil
	case "weekly":
		return qrs.IncrementWeekly, nil
	case "monthly":
		return qrs.IncrementMonthly, nil
	case "custom":
		return qrs.IncrementCustom, nil
	default:
		return 0, errors.Newf("must be once, hourly, daily, weekly, monthly or custom, got %q", cell)
	}
}

func parseDaylightSaving(cell string) (int, error) {
	switch strings.ToLower(cell) {
	case "observe", "observedaylightsavingtime", "":
		return qrs.DaylightObserve, nil
	case "permanentstandard", "permanentstandardtime":
		return qrs.DaylightPermanentStandard, nil
	case "permanentdaylight", "permanentdaylightsavingtime":
		return qrs.DaylightPermanentDaylight, nil
	default:
		return 0, errors.Newf("must be observe, permanentStandard or permanentDaylight, got %q", cell)
	}
}

func validIncrementDescription(cell string) bool {
	fields := strings.Fields(cell)
	if len(fields) != 4 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Package taskimport implements the task import pipeline: tabular source
// parsing, reference resolution against the Repository, and the two-phase
// importer that creates tasks before composite triggers.
package taskimport

import (
	"strings"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Column is a logical column of the task import grammar. Using a typed
// enum instead of header strings keeps the per-row hot path free of
// stringly-typed lookups.
type Column int

const (
	ColTaskCounter Column = iota
	ColTaskType
	ColTaskName
	ColTaskID
	ColTaskEnabled
	ColTaskTimeout
	ColTaskRetries
	ColAppID
	ColPartialReload
	ColManuallyTriggered
	ColExtProgramPath
	ColExtProgramParameters
	ColTags
	ColCustomProperties
	ColEventCounter
	ColEventType
	ColEventName
	ColEventEnabled
	ColSchemaIncrementOption
	ColSchemaIncrementDescription
	ColDaylightSavingsTime
	ColSchemaStart
	ColSchemaExpiration
	ColSchemaFilterDescription
	ColSchemaTimeZone
	ColTimeConstraintSeconds
	ColTimeConstraintMinutes
	ColTimeConstraintHours
	ColTimeConstraintDays
	ColRuleCounter
	ColRuleState
	ColRuleTaskName
	ColRuleTaskID

	columnCount // keep last
)

// columnNames maps logical columns to their header text. The order of the
// enum is also the canonical column order for position-based resolution.
var columnNames = [columnCount]string{
	ColTaskCounter:                "Task counter",
	ColTaskType:                   "Task type",
	ColTaskName:                   "Task name",
	ColTaskID:                     "Task id",
	ColTaskEnabled:                "Task enabled",
	ColTaskTimeout:                "Task timeout",
	ColTaskRetries:                "Task retries",
	ColAppID:                      "App id",
	ColPartialReload:              "Partial reload",
	ColManuallyTriggered:          "Manually triggered",
	ColExtProgramPath:             "Ext program path",
	ColExtProgramParameters:       "Ext program parameters",
	ColTags:                       "Tags",
	ColCustomProperties:           "Custom properties",
	ColEventCounter:               "Event counter",
	ColEventType:                  "Event type",
	ColEventName:                  "Event name",
	ColEventEnabled:               "Event enabled",
	ColSchemaIncrementOption:      "Schema increment option",
	ColSchemaIncrementDescription: "Schema increment description",
	ColDaylightSavingsTime:        "Daylight savings time",
	ColSchemaStart:                "Schema start",
	ColSchemaExpiration:           "Schema expiration",
	ColSchemaFilterDescription:    "Schema filter description",
	ColSchemaTimeZone:             "Schema time zone",
	ColTimeConstraintSeconds:      "Time constraint seconds",
	ColTimeConstraintMinutes:      "Time constraint minutes",
	ColTimeConstraintHours:        "Time constraint hours",
	ColTimeConstraintDays:         "Time constraint days",
	ColRuleCounter:                "Rule counter",
	ColRuleState:                  "Rule state",
	ColRuleTaskName:               "Rule task name",
	ColRuleTaskID:                 "Rule task id",
}

// mandatoryColumns must be present in every task import source
var mandatoryColumns = []Column{
	ColTaskCounter, ColTaskType, ColTaskName, ColTaskID,
	ColTaskEnabled, ColTaskTimeout, ColTaskRetries,
	ColAppID, ColPartialReload, ColManuallyTriggered,
	ColTags, ColCustomProperties,
}

// Name returns the header text of a logical column.
func (c Column) Name() string {
	return columnNames[c]
}

// RefMode selects how header columns are mapped to logical columns.
type RefMode int

const (
	// RefByName matches header cells against the canonical column names
	RefByName RefMode = iota
	// RefByPosition assumes the canonical column order, ignoring header text
	RefByPosition
)

// ParseRefMode converts the --col-ref-by flag value.
func ParseRefMode(s string) (RefMode, error) {
	switch s {
	case "name":
		return RefByName, nil
	case "position":
		return RefByPosition, nil
	default:
		return 0, errors.ValidationErrorf("col-ref-by must be 'name' or 'position', got %q", s)
	}
}

// ColumnResolver maps logical columns to physical positions in a source.
// Unknown source columns are retained in the rows but never addressed.
type ColumnResolver struct {
	pos [columnCount]int
}

// NewColumnResolver builds a resolver from the source header. In name
// mode every mandatory column must appear in the header; in position mode
// the header must be at least as wide as the mandatory set.
func NewColumnResolver(header []string, mode RefMode) (*ColumnResolver, error) {
	r := &ColumnResolver{}
	for i := range r.pos {
		r.pos[i] = -1
	}

	switch mode {
	case RefByName:
		byName := make(map[string]int, len(header))
		for i, h := range header {
			byName[strings.TrimSpace(h)] = i
		}
		for c := Column(0); c < columnCount; c++ {
			if i, ok := byName[columnNames[c]]; ok {
				r.pos[c] = i
			}
		}
	case RefByPosition:
		for c := Column(0); c < columnCount && int(c) < len(header); c++ {
			r.pos[c] = int(c)
		}
	}

	for _, c := range mandatoryColumns {
		if r.pos[c] < 0 {
			return nil, errors.ValidationErrorf("mandatory column %q missing from source header", c.Name())
		}
	}
	return r, nil
}

// Get returns the cell of a logical column in a row, trimmed. The second
// return value is false when the column is absent from the source or the
// row is too short.
func (r *ColumnResolver) Get(row []string, col Column) (string, bool) {
	i := r.pos[col]
	if i < 0 || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

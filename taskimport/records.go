package taskimport

import (
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// PropertyRef is a custom property name/value pair as written in the
// source; both are resolved against the server's definitions before use.
type PropertyRef struct {
	Name  string
	Value string
}

// RuleRecord is one parsed composite rule row
type RuleRecord struct {
	Counter  int
	State    int // qrs.RuleStateTaskSuccessful or qrs.RuleStateTaskFail
	TaskName string
	TaskRef  string // existing GUID or the Task id of another import row
	Row      int
}

// EventRecord is one parsed schedule or composite event
type EventRecord struct {
	Counter   int
	Composite bool
	Name      string
	Enabled   bool
	Row       int

	// Schedule fields
	IncrementOption      int
	IncrementDescription string
	DaylightSavingTime   int
	Start                string
	Expiration           string
	FilterDescription    []string
	TimeZone             string

	// Composite fields
	TimeConstraint qrs.TimeConstraint
	Rules          []RuleRecord
}

// TaskRecord is one parsed task group: the top-level task fields from the
// group's first row plus every event and rule declared on later rows with
// the same Task counter.
type TaskRecord struct {
	Counter int
	Kind    taskgraph.TaskKind
	Name    string
	// LocalID is the Task id column: a local counter when referenced by
	// rules in the same source, otherwise arbitrary
	LocalID           string
	Enabled           bool
	Timeout           int
	Retries           int
	AppRef            string // GUID or "newapp-<n>"
	PartialReload     bool
	ManuallyTriggered bool
	Path              string
	Parameters        string
	Tags              []string
	CustomProperties  []PropertyRef
	Events            []EventRecord
	Row               int
}

// ScheduleEvents returns the schedule events of the record, the ones
// created atomically with the task in Phase A.
func (t *TaskRecord) ScheduleEvents() []EventRecord {
	var out []EventRecord
	for _, ev := range t.Events {
		if !ev.Composite {
			out = append(out, ev)
		}
	}
	return out
}

// CompositeEvents returns the composite events of the record, created in
// Phase B once every upstream task exists.
func (t *TaskRecord) CompositeEvents() []EventRecord {
	var out []EventRecord
	for _, ev := range t.Events {
		if ev.Composite {
			out = append(out, ev)
		}
	}
	return out
}

// AppRecord is one parsed app upload row
type AppRecord struct {
	Counter                int
	Name                   string
	QvfDirectory           string
	QvfName                string
	ExcludeDataConnections bool
	Tags                   []string
	CustomProperties       []PropertyRef
	OwnerUserDirectory     string
	OwnerUserID            string
	PublishToStream        string
	Row                    int
}

// Package taskgraph holds the in-memory model of a QSEoW reload-task
// network: tasks as nodes, schedule triggers and composite events as
// meta-nodes, and composite rules as labeled edges. The model is the
// single source of truth during a run; it is not safe for concurrent
// mutation and is rebuilt on demand.
package taskgraph

import (
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
)

// TaskKind discriminates the two task flavors
type TaskKind int

const (
	KindReload TaskKind = iota
	KindExternalProgram
)

func (k TaskKind) String() string {
	if k == KindExternalProgram {
		return "External program"
	}
	return "Reload"
}

// ScheduleTrigger is a normalized schema event attached to one task
type ScheduleTrigger struct {
	ID                   string
	Name                 string
	Enabled              bool
	IncrementOption      int
	IncrementDescription string
	DaylightSavingTime   int
	Start                string
	Expiration           string
	FilterDescription    []string
	TimeZone             string
}

// Rule is one conjunct of a composite trigger: the upstream task and the
// terminal state it must reach
type Rule struct {
	UpstreamID string
	State      int
}

// CompositeTrigger is a normalized composite event attached to one
// downstream task
type CompositeTrigger struct {
	ID             string
	Name           string
	Enabled        bool
	TimeConstraint qrs.TimeConstraint
	Rules          []Rule
}

// PropertyValue is a custom property binding on a task
type PropertyValue struct {
	Name  string
	Value string
}

// Task is a node in the task graph
type Task struct {
	ID             string
	Kind           TaskKind
	Name           string
	Enabled        bool
	SessionTimeout int
	MaxRetries     int

	// Reload payload
	AppID               string
	AppName             string
	IsPartialReload     bool
	IsManuallyTriggered bool

	// External program payload
	Path       string
	Parameters string

	Tags             []string
	CustomProperties []PropertyValue

	ScheduleTriggers  []ScheduleTrigger
	CompositeTriggers []CompositeTrigger

	// Display-only operational details
	NextExecution string
	LastStatus    string

	// Tombstone marks a node synthesized for a rule referencing a GUID
	// the Repository does not know. Reported, never silently dropped.
	Tombstone bool
}

// Edge is one derived dependency edge: for every rule of every composite
// trigger owned by D referencing U there is an edge U -> D labeled with
// the owning event and the required rule state.
type Edge struct {
	UpstreamID   string
	DownstreamID string
	EventID      string
	EventName    string
	State        int
}

// Model is the directed multigraph of tasks
type Model struct {
	tasks  map[string]*Task
	order  []string // insertion order for stable iteration
	byName map[string][]*Task
	byTag  map[string][]*Task
	byApp  map[string][]*Task

	// appTags maps app GUID -> tag names, seeded via SetAppTags so that
	// app-tag filters resolve without extra Repository round trips
	appTags map[string][]string

	log *zap.SugaredLogger
}

// New creates an empty model.
func New(log *zap.SugaredLogger) *Model {
	return &Model{
		tasks:  make(map[string]*Task),
		byName: make(map[string][]*Task),
		byTag:  make(map[string][]*Task),
		byApp:  make(map[string][]*Task),
		log:    log.Named("taskgraph"),
	}
}

// AddTask ingests a task node and maintains the indices. Adding a task
// with the GUID of an existing tombstone replaces the tombstone.
func (m *Model) AddTask(t *Task) {
	if existing, ok := m.tasks[t.ID]; ok {
		if !existing.Tombstone {
			m.log.Warnw("Duplicate task id ignored", "id", t.ID, "name", t.Name)
			return
		}
		// Real task supersedes the tombstone; keep insertion position
		*existing = *t
		m.index(existing)
		return
	}
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
	m.index(t)
}

func (m *Model) index(t *Task) {
	m.byName[t.Name] = append(m.byName[t.Name], t)
	for _, tag := range t.Tags {
		m.byTag[tag] = append(m.byTag[tag], t)
	}
	if t.AppID != "" {
		m.byApp[t.AppID] = append(m.byApp[t.AppID], t)
	}
}

// ensureNode returns the task with the given GUID, synthesizing a
// tombstone when the GUID is unknown.
func (m *Model) ensureNode(id string) *Task {
	if t, ok := m.tasks[id]; ok {
		return t
	}
	t := &Task{ID: id, Name: "<unknown task " + id + ">", Tombstone: true}
	m.tasks[id] = t
	m.order = append(m.order, id)
	m.log.Warnw("Composite rule references unknown task", "id", id)
	return t
}

// AttachComposite attaches a composite trigger to its downstream task and
// materializes tombstones for unresolved rule endpoints.
func (m *Model) AttachComposite(downstreamID string, trigger CompositeTrigger) {
	down := m.ensureNode(downstreamID)
	for _, r := range trigger.Rules {
		if r.UpstreamID == "" {
			m.log.Warnw("Composite rule without upstream task", "event", trigger.Name, "downstream", downstreamID)
			continue
		}
		m.ensureNode(r.UpstreamID)
	}
	down.CompositeTriggers = append(down.CompositeTriggers, trigger)
}

// TaskByID returns a task node by GUID.
func (m *Model) TaskByID(id string) (*Task, bool) {
	t, ok := m.tasks[id]
	return t, ok
}

// TasksByName returns every task with the given name.
func (m *Model) TasksByName(name string) []*Task {
	return m.byName[name]
}

// TasksByTag returns every task carrying the given tag.
func (m *Model) TasksByTag(tag string) []*Task {
	return m.byTag[tag]
}

// TasksByApp returns every reload task bound to the given app GUID.
func (m *Model) TasksByApp(appID string) []*Task {
	return m.byApp[appID]
}

// Tasks iterates all task nodes in insertion order, tombstones included.
func (m *Model) Tasks() []*Task {
	out := make([]*Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// Edges derives the full (upstream, downstream, event, state) tuple set.
func (m *Model) Edges() []Edge {
	var edges []Edge
	for _, id := range m.order {
		down := m.tasks[id]
		for _, ev := range down.CompositeTriggers {
			for _, r := range ev.Rules {
				edges = append(edges, Edge{
					UpstreamID:   r.UpstreamID,
					DownstreamID: down.ID,
					EventID:      ev.ID,
					EventName:    ev.Name,
					State:        r.State,
				})
			}
		}
	}
	return edges
}

// Tombstones lists the unresolved rule endpoints found while building the
// model. They are reported but do not prevent model construction.
func (m *Model) Tombstones() []*Task {
	var out []*Task
	for _, id := range m.order {
		if m.tasks[id].Tombstone {
			out = append(out, m.tasks[id])
		}
	}
	return out
}

// upstreamAdjacency maps downstream task id -> upstream task ids
func (m *Model) upstreamAdjacency() map[string][]string {
	adj := make(map[string][]string)
	for _, e := range m.Edges() {
		adj[e.DownstreamID] = append(adj[e.DownstreamID], e.UpstreamID)
	}
	return adj
}

// downstreamAdjacency maps upstream task id -> downstream task ids
func (m *Model) downstreamAdjacency() map[string][]string {
	adj := make(map[string][]string)
	for _, e := range m.Edges() {
		adj[e.UpstreamID] = append(adj[e.UpstreamID], e.DownstreamID)
	}
	return adj
}

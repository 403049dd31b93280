package taskgraph

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
)

// execStatusNames maps QRS task execution status codes to display names
var execStatusNames = map[int]string{
	0:  "NeverStarted",
	1:  "Triggered",
	2:  "Started",
	3:  "Queued",
	4:  "AbortInitiated",
	5:  "Aborting",
	6:  "Aborted",
	7:  "FinishedSuccess",
	8:  "FinishedFail",
	9:  "Skipped",
	10: "Retry",
	11: "Error",
	12: "Reset",
}

// ExecStatusName returns the display name of a QRS execution status code.
func ExecStatusName(status int) string {
	if name, ok := execStatusNames[status]; ok {
		return name
	}
	return "Unknown"
}

// BuildFromRepository fetches the complete task, schema-event and
// composite-event population and assembles the graph. The four listings
// run concurrently; all responses are merged into the model under this
// single writer.
func BuildFromRepository(ctx context.Context, client *qrs.Client, log *zap.SugaredLogger) (*Model, error) {
	var (
		wg         sync.WaitGroup
		reloads    []qrs.ReloadTask
		externals  []qrs.ExternalProgramTask
		schemas    []qrs.SchemaEvent
		composites []qrs.CompositeEvent
		errs       = make([]error, 4)
	)

	wg.Add(4)
	go func() { defer wg.Done(); reloads, errs[0] = client.ListReloadTasks(ctx, "") }()
	go func() { defer wg.Done(); externals, errs[1] = client.ListExternalProgramTasks(ctx, "") }()
	go func() { defer wg.Done(); schemas, errs[2] = client.ListSchemaEvents(ctx) }()
	go func() { defer wg.Done(); composites, errs[3] = client.ListCompositeEvents(ctx) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch task population")
		}
	}

	m := New(log)
	for i := range reloads {
		m.AddTask(fromReloadTask(&reloads[i]))
	}
	for i := range externals {
		m.AddTask(fromExternalProgramTask(&externals[i]))
	}

	// Events arrive detached; join them to their owning tasks client-side
	for i := range schemas {
		ev := &schemas[i]
		ownerID := eventOwner(ev.ReloadTask, ev.ExternalProgramTask)
		if ownerID == "" {
			log.Warnw("Schema event without owning task", "event", ev.Name)
			continue
		}
		owner := m.ensureNode(ownerID)
		owner.ScheduleTriggers = append(owner.ScheduleTriggers, fromSchemaEvent(ev))
	}
	for i := range composites {
		ev := &composites[i]
		ownerID := eventOwner(ev.ReloadTask, ev.ExternalProgramTask)
		if ownerID == "" {
			log.Warnw("Composite event without owning task", "event", ev.Name)
			continue
		}
		m.AttachComposite(ownerID, fromCompositeEvent(ev))
	}

	log.Infow("Task graph built",
		"reload_tasks", len(reloads),
		"external_program_tasks", len(externals),
		"schema_events", len(schemas),
		"composite_events", len(composites),
		"tombstones", len(m.Tombstones()),
	)
	return m, nil
}

func eventOwner(reload, external *qrs.TaskCondensed) string {
	if reload != nil && reload.ID != "" {
		return reload.ID
	}
	if external != nil && external.ID != "" {
		return external.ID
	}
	return ""
}

func fromReloadTask(t *qrs.ReloadTask) *Task {
	task := &Task{
		ID:                  t.ID,
		Kind:                KindReload,
		Name:                t.Name,
		Enabled:             t.Enabled,
		SessionTimeout:      t.TaskSessionTimeout,
		MaxRetries:          t.MaxRetries,
		IsPartialReload:     t.IsPartialReload,
		IsManuallyTriggered: t.IsManuallyTriggered,
	}
	if t.App != nil {
		task.AppID = t.App.ID
		task.AppName = t.App.Name
	}
	task.Tags = tagNames(t.Tags)
	task.CustomProperties = propertyValues(t.CustomProperties)
	applyOperational(task, t.Operational)
	return task
}

func fromExternalProgramTask(t *qrs.ExternalProgramTask) *Task {
	task := &Task{
		ID:             t.ID,
		Kind:           KindExternalProgram,
		Name:           t.Name,
		Enabled:        t.Enabled,
		SessionTimeout: t.TaskSessionTimeout,
		MaxRetries:     t.MaxRetries,
		Path:           t.Path,
		Parameters:     t.Parameters,
	}
	task.Tags = tagNames(t.Tags)
	task.CustomProperties = propertyValues(t.CustomProperties)
	applyOperational(task, t.Operational)
	return task
}

func fromSchemaEvent(ev *qrs.SchemaEvent) ScheduleTrigger {
	return ScheduleTrigger{
		ID:                   ev.ID,
		Name:                 ev.Name,
		Enabled:              ev.Enabled,
		IncrementOption:      ev.IncrementOption,
		IncrementDescription: ev.IncrementDescription,
		DaylightSavingTime:   ev.DaylightSavingTime,
		Start:                ev.StartDate,
		Expiration:           ev.ExpirationDate,
		FilterDescription:    ev.SchemaFilterDescription,
		TimeZone:             ev.TimeZone,
	}
}

func fromCompositeEvent(ev *qrs.CompositeEvent) CompositeTrigger {
	trigger := CompositeTrigger{
		ID:             ev.ID,
		Name:           ev.Name,
		Enabled:        ev.Enabled,
		TimeConstraint: ev.TimeConstraint,
	}
	for _, r := range ev.CompositeRules {
		upstream := eventOwner(r.ReloadTask, r.ExternalProgramTask)
		trigger.Rules = append(trigger.Rules, Rule{UpstreamID: upstream, State: r.RuleState})
	}
	return trigger
}

func tagNames(tags []qrs.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func propertyValues(props []qrs.CustomPropertyValue) []PropertyValue {
	if len(props) == 0 {
		return nil
	}
	out := make([]PropertyValue, 0, len(props))
	for _, p := range props {
		out = append(out, PropertyValue{Name: p.Definition.Name, Value: p.Value})
	}
	return out
}

func applyOperational(task *Task, op *qrs.OperationalState) {
	if op == nil {
		return
	}
	task.NextExecution = op.NextExecution
	if op.LastExecutionResult != nil {
		task.LastStatus = ExecStatusName(op.LastExecutionResult.Status)
	}
}

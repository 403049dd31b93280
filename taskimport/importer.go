package taskimport

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// UpdateModeCreate is the only supported update mode: every row creates
// a new object, nothing is matched against existing tasks.
const UpdateModeCreate = "create"

// RepositoryAPI is the slice of the Repository client the importer
// drives. qrs.Client satisfies it; dry runs and tests substitute fakes.
type RepositoryAPI interface {
	CreateReloadTask(ctx context.Context, spec qrs.ReloadTaskCreate) (string, error)
	CreateExternalProgramTask(ctx context.Context, spec qrs.ExternalProgramTaskCreate) (string, error)
	CreateCompositeEvent(ctx context.Context, event qrs.CompositeEvent) (string, error)
	UploadApp(ctx context.Context, qvf []byte, name string, excludeData bool) (*qrs.App, error)
	GetAppByID(ctx context.Context, appID string) (*qrs.App, error)
	UpdateApp(ctx context.Context, app *qrs.App) error
	PublishApp(ctx context.Context, appID, streamID string) error
	SetAppOwner(ctx context.Context, appID, userDirectory, userID string) error
}

// Options controls one import run.
type Options struct {
	// DryRun resolves and builds every payload but sends nothing; created
	// objects get synthetic GUIDs so later phases still line up.
	DryRun bool
	// SleepAppUpload is the pause between consecutive QVF uploads.
	SleepAppUpload time.Duration
	// UpdateMode must be UpdateModeCreate; anything else fails fast.
	UpdateMode string
}

// Failure is one isolated error from the run. The run continues past
// failures; only context cancellation aborts it.
type Failure struct {
	Phase   string // "app", "task" or "composite"
	Subject string
	Row     int
	Err     error
}

// Result summarizes an import run.
type Result struct {
	AppsUploaded           int
	TasksCreated           int
	CompositeEventsCreated int
	Failures               []Failure

	// LocalToGUID maps the Task id column of each created task to its
	// server GUID, in the order tasks were committed.
	LocalToGUID map[string]CreatedTask
}

// Importer executes a parsed import in phases: app uploads first, then
// tasks with their schedule triggers, then composite triggers once every
// upstream task exists.
type Importer struct {
	repo     RepositoryAPI
	resolver *Resolver
	opts     Options
	log      *zap.SugaredLogger
}

// NewImporter wires an importer. A dry run swaps the repository for a
// payload printer before anything else sees it.
func NewImporter(repo RepositoryAPI, resolver *Resolver, opts Options, log *zap.SugaredLogger) (*Importer, error) {
	if opts.UpdateMode != "" && opts.UpdateMode != UpdateModeCreate {
		return nil, errors.ConfigurationErrorf("unsupported update mode %q, only %q is available", opts.UpdateMode, UpdateModeCreate)
	}
	imp := &Importer{
		repo:     repo,
		resolver: resolver,
		opts:     opts,
		log:      log.Named("task.importer"),
	}
	if opts.DryRun {
		imp.repo = newDryRunRepository(repo, imp.log)
		imp.log.Info("Dry run: payloads will be logged, nothing will be created")
	}
	return imp, nil
}

// Run executes the full import. Tasks are created strictly in source
// order so local references commit before anything can point at them.
// A failed row is recorded and skipped; the run keeps going unless the
// context is cancelled.
func (imp *Importer) Run(ctx context.Context, apps []AppRecord, tasks []TaskRecord) (*Result, error) {
	res := &Result{LocalToGUID: make(map[string]CreatedTask)}

	if err := imp.importApps(ctx, apps, res); err != nil {
		return res, err
	}
	createdByCounter := make(map[int]CreatedTask, len(tasks))
	if err := imp.importTasks(ctx, tasks, createdByCounter, res); err != nil {
		return res, err
	}
	if err := imp.importCompositeEvents(ctx, tasks, createdByCounter, res); err != nil {
		return res, err
	}

	imp.log.Infow("Import finished",
		"appsUploaded", res.AppsUploaded,
		"tasksCreated", res.TasksCreated,
		"compositeEventsCreated", res.CompositeEventsCreated,
		"failures", len(res.Failures))
	return res, nil
}

func (imp *Importer) importApps(ctx context.Context, apps []AppRecord, res *Result) error {
	for i, rec := range apps {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "import aborted during app uploads")
		}
		if i > 0 && imp.opts.SleepAppUpload > 0 {
			if err := sleepCtx(ctx, imp.opts.SleepAppUpload); err != nil {
				return errors.Wrap(err, "import aborted during app uploads")
			}
		}
		if err := imp.uploadApp(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "import aborted during app uploads")
			}
			imp.log.Errorw("App upload failed", "app", rec.Name, "row", rec.Row, "error", err)
			res.Failures = append(res.Failures, Failure{Phase: "app", Subject: rec.Name, Row: rec.Row, Err: err})
			continue
		}
		res.AppsUploaded++
	}
	return nil
}

func (imp *Importer) uploadApp(ctx context.Context, rec AppRecord) error {
	qvfPath := filepath.Join(rec.QvfDirectory, rec.QvfName)
	qvf, err := os.ReadFile(qvfPath)
	if err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "cannot read QVF file %q: %v", qvfPath, err)
	}

	imp.log.Infow("Uploading app", "app", rec.Name, "qvf", qvfPath, "bytes", len(qvf))
	app, err := imp.repo.UploadApp(ctx, qvf, rec.Name, rec.ExcludeDataConnections)
	if err != nil {
		return err
	}
	imp.resolver.RegisterUploadedApp(rec.Counter, app.ID)
	imp.log.Infow("App uploaded", "app", rec.Name, "id", app.ID)

	if len(rec.Tags) > 0 || len(rec.CustomProperties) > 0 {
		tags, err := imp.resolver.ResolveTags(rec.Tags)
		if err != nil {
			return err
		}
		props, err := imp.resolver.ResolveCustomProperties(rec.CustomProperties)
		if err != nil {
			return err
		}
		current, err := imp.repo.GetAppByID(ctx, app.ID)
		if err != nil {
			return err
		}
		current.Tags = tags
		current.CustomProperties = props
		if err := imp.repo.UpdateApp(ctx, current); err != nil {
			return err
		}
	}

	if rec.OwnerUserDirectory != "" && rec.OwnerUserID != "" {
		if err := imp.repo.SetAppOwner(ctx, app.ID, rec.OwnerUserDirectory, rec.OwnerUserID); err != nil {
			return err
		}
	}

	if rec.PublishToStream != "" {
		if stream, ok := imp.resolver.ResolveStream(rec.PublishToStream); ok {
			if err := imp.repo.PublishApp(ctx, app.ID, stream.ID); err != nil {
				return err
			}
			imp.log.Infow("App published", "app", rec.Name, "stream", stream.Name)
		}
	}
	return nil
}

func (imp *Importer) importTasks(ctx context.Context, tasks []TaskRecord, createdByCounter map[int]CreatedTask, res *Result) error {
	for _, rec := range tasks {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "import aborted during task creation")
		}
		guid, err := imp.createTask(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "import aborted during task creation")
			}
			imp.log.Errorw("Task creation failed", "task", rec.Name, "row", rec.Row, "error", err)
			res.Failures = append(res.Failures, Failure{Phase: "task", Subject: rec.Name, Row: rec.Row, Err: err})
			continue
		}
		created := CreatedTask{GUID: guid, Kind: rec.Kind}
		createdByCounter[rec.Counter] = created
		if rec.LocalID != "" {
			res.LocalToGUID[rec.LocalID] = created
		}
		res.TasksCreated++
		imp.log.Infow("Task created", "task", rec.Name, "id", guid)
	}
	return nil
}

func (imp *Importer) createTask(ctx context.Context, rec TaskRecord) (string, error) {
	tags, err := imp.resolver.ResolveTags(rec.Tags)
	if err != nil {
		return "", err
	}
	props, err := imp.resolver.ResolveCustomProperties(rec.CustomProperties)
	if err != nil {
		return "", err
	}
	schemaEvents := buildSchemaEvents(rec.ScheduleEvents())

	switch rec.Kind {
	case taskgraph.KindReload:
		appID, err := imp.resolver.ResolveAppRef(ctx, rec.AppRef)
		if err != nil {
			return "", err
		}
		spec := qrs.ReloadTaskCreate{
			Task: qrs.ReloadTask{
				Name:                rec.Name,
				TaskType:            qrs.TaskTypeReload,
				Enabled:             rec.Enabled,
				TaskSessionTimeout:  rec.Timeout,
				MaxRetries:          rec.Retries,
				App:                 &qrs.App{ID: appID},
				IsPartialReload:     rec.PartialReload,
				IsManuallyTriggered: rec.ManuallyTriggered,
				Tags:                tags,
				CustomProperties:    props,
			},
			SchemaEvents:    schemaEvents,
			CompositeEvents: []qrs.CompositeEvent{},
		}
		return imp.repo.CreateReloadTask(ctx, spec)

	case taskgraph.KindExternalProgram:
		spec := qrs.ExternalProgramTaskCreate{
			Task: qrs.ExternalProgramTask{
				Name:               rec.Name,
				TaskType:           qrs.TaskTypeExternalProgram,
				Enabled:            rec.Enabled,
				TaskSessionTimeout: rec.Timeout,
				MaxRetries:         rec.Retries,
				Path:               rec.Path,
				Parameters:         rec.Parameters,
				Tags:               tags,
				CustomProperties:   props,
			},
			SchemaEvents:    schemaEvents,
			CompositeEvents: []qrs.CompositeEvent{},
		}
		return imp.repo.CreateExternalProgramTask(ctx, spec)
	}
	return "", errors.ValidationErrorf("task %q has unknown task type", rec.Name)
}

func buildSchemaEvents(events []EventRecord) []qrs.SchemaEvent {
	out := make([]qrs.SchemaEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, qrs.SchemaEvent{
			Name:                    ev.Name,
			Enabled:                 ev.Enabled,
			EventType:               qrs.EventTypeSchema,
			IncrementOption:         ev.IncrementOption,
			IncrementDescription:    ev.IncrementDescription,
			DaylightSavingTime:      ev.DaylightSavingTime,
			StartDate:               ev.Start,
			ExpirationDate:          ev.Expiration,
			SchemaFilterDescription: ev.FilterDescription,
			TimeZone:                ev.TimeZone,
		})
	}
	return out
}

func (imp *Importer) importCompositeEvents(ctx context.Context, tasks []TaskRecord, createdByCounter map[int]CreatedTask, res *Result) error {
	for _, rec := range tasks {
		created, ok := createdByCounter[rec.Counter]
		if !ok {
			// Task failed in the previous phase; its composite events have
			// no owner to attach to.
			if len(rec.CompositeEvents()) > 0 {
				imp.log.Warnw("Skipping composite events of failed task", "task", rec.Name, "row", rec.Row)
			}
			continue
		}

		for _, ev := range rec.CompositeEvents() {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "import aborted during composite event creation")
			}
			event, err := imp.buildCompositeEvent(ev, rec, created, res.LocalToGUID)
			if err == nil {
				_, err = imp.repo.CreateCompositeEvent(ctx, event)
			}
			if err != nil {
				if ctx.Err() != nil {
					return errors.Wrap(ctx.Err(), "import aborted during composite event creation")
				}
				imp.log.Errorw("Composite event creation failed",
					"event", ev.Name, "task", rec.Name, "row", ev.Row, "error", err)
				res.Failures = append(res.Failures, Failure{Phase: "composite", Subject: ev.Name, Row: ev.Row, Err: err})
				continue
			}
			res.CompositeEventsCreated++
			imp.log.Infow("Composite event created", "event", ev.Name, "task", rec.Name)
		}
	}
	return nil
}

func (imp *Importer) buildCompositeEvent(ev EventRecord, rec TaskRecord, owner CreatedTask, local map[string]CreatedTask) (qrs.CompositeEvent, error) {
	event := qrs.CompositeEvent{
		Name:           ev.Name,
		Enabled:        ev.Enabled,
		EventType:      qrs.EventTypeComposite,
		TimeConstraint: ev.TimeConstraint,
	}
	switch owner.Kind {
	case taskgraph.KindExternalProgram:
		event.ExternalProgramTask = &qrs.TaskCondensed{ID: owner.GUID}
	default:
		event.ReloadTask = &qrs.TaskCondensed{ID: owner.GUID}
	}

	for _, rule := range ev.Rules {
		upstream, err := imp.resolver.ResolveRuleRef(rule.TaskRef, local)
		if err != nil {
			return qrs.CompositeEvent{}, err
		}
		cr := qrs.CompositeRule{RuleState: rule.State}
		switch upstream.Kind {
		case taskgraph.KindExternalProgram:
			cr.ExternalProgramTask = &qrs.TaskCondensed{ID: upstream.GUID, Name: rule.TaskName}
		default:
			cr.ReloadTask = &qrs.TaskCondensed{ID: upstream.GUID, Name: rule.TaskName}
		}
		event.CompositeRules = append(event.CompositeRules, cr)
	}
	return event, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

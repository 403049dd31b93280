package taskimport

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// AppLookup is the slice of the Repository client the resolver needs for
// app existence checks.
type AppLookup interface {
	GetAppByID(ctx context.Context, appID string) (*qrs.App, error)
}

// CreatedTask is a task brought into existence during this run, keyed in
// the localToGuid table by the Task id of its source row.
type CreatedTask struct {
	GUID string
	Kind taskgraph.TaskKind
}

// Resolver resolves symbolic references from the import source against
// three namespaces: objects already on the server (by GUID), objects
// created earlier in the same run (by local counter), and objects
// referenced by name (tags, custom properties, streams).
type Resolver struct {
	caches *qrs.Caches
	model  *taskgraph.Model
	apps   AppLookup

	newApps     map[int]string    // App counter -> uploaded app GUID
	appRefCache map[string]string // appRef -> GUID, for idempotence

	log *zap.SugaredLogger
}

// NewResolver creates a resolver over warmed caches and a built model.
func NewResolver(caches *qrs.Caches, model *taskgraph.Model, apps AppLookup, log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		caches:      caches,
		model:       model,
		apps:        apps,
		newApps:     make(map[int]string),
		appRefCache: make(map[string]string),
		log:         log.Named("task.resolver"),
	}
}

// RegisterUploadedApp records the GUID produced by uploading the app row
// with the given App counter.
func (r *Resolver) RegisterUploadedApp(counter int, guid string) {
	r.newApps[counter] = guid
}

// ResolveTags maps tag names to server tags. Tags are matched
// case-sensitively and must pre-exist; creating tags is out of scope.
func (r *Resolver) ResolveTags(names []string) ([]qrs.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tags := make([]qrs.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := r.caches.TagByName(name)
		if !ok {
			return nil, errors.ValidationErrorf("tag %q does not exist on the server", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// ResolveCustomProperties maps name=value pairs to server custom property
// values. The property must exist and the value must be in its declared
// choice set.
func (r *Resolver) ResolveCustomProperties(refs []PropertyRef) ([]qrs.CustomPropertyValue, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	values := make([]qrs.CustomPropertyValue, 0, len(refs))
	for _, ref := range refs {
		def, ok := r.caches.CustomPropertyByName(ref.Name)
		if !ok {
			return nil, errors.ValidationErrorf("custom property %q does not exist on the server", ref.Name)
		}
		if !containsString(def.ChoiceValues, ref.Value) {
			return nil, errors.ValidationErrorf(
				"value %q is not among the choices of custom property %q", ref.Value, ref.Name)
		}
		values = append(values, qrs.CustomPropertyValue{Definition: def, Value: ref.Value})
	}
	return values, nil
}

// ResolveAppRef resolves an App id cell: either a GUID of an existing app
// or "newapp-<n>" pointing at the app uploaded for App counter n earlier
// in this run. Resolving the same ref twice yields the same GUID.
func (r *Resolver) ResolveAppRef(ctx context.Context, ref string) (string, error) {
	if guid, ok := r.appRefCache[ref]; ok {
		return guid, nil
	}

	if counterStr, isNew := strings.CutPrefix(ref, "newapp-"); isNew {
		counter, err := strconv.Atoi(counterStr)
		if err != nil || counter < 1 {
			return "", errors.ValidationErrorf("malformed app reference %q", ref)
		}
		guid, ok := r.newApps[counter]
		if !ok {
			return "", errors.ValidationErrorf("app reference %q does not match any uploaded app", ref)
		}
		r.appRefCache[ref] = guid
		return guid, nil
	}

	if _, err := uuid.Parse(ref); err != nil {
		return "", errors.ValidationErrorf("app reference %q is neither a GUID nor newapp-<n>", ref)
	}
	if _, err := r.apps.GetAppByID(ctx, ref); err != nil {
		if errors.IsNotFoundError(err) {
			return "", errors.ValidationErrorf("app %s does not exist on the server", ref)
		}
		return "", err
	}
	r.appRefCache[ref] = ref
	return ref, nil
}

// ResolveStream resolves a publish target by GUID first, then by
// case-sensitive name. A miss is a warning for the caller: it cancels
// the publish step for that app only.
func (r *Resolver) ResolveStream(ref string) (qrs.Stream, bool) {
	if _, err := uuid.Parse(ref); err == nil {
		if stream, ok := r.caches.StreamByID(ref); ok {
			return stream, true
		}
	}
	if stream, ok := r.caches.StreamByName(ref); ok {
		return stream, true
	}
	r.log.Warnw("Stream not found, skipping publish", "stream", ref)
	return qrs.Stream{}, false
}

// ResolveRuleRef resolves a composite rule's upstream reference: the
// localToGuid table of this run first, then a task GUID the Repository
// already knows. Anything else is an error.
func (r *Resolver) ResolveRuleRef(ref string, local map[string]CreatedTask) (CreatedTask, error) {
	if created, ok := local[ref]; ok {
		return created, nil
	}
	if _, err := uuid.Parse(ref); err == nil {
		if task, ok := r.model.TaskByID(ref); ok && !task.Tombstone {
			return CreatedTask{GUID: task.ID, Kind: task.Kind}, nil
		}
	}
	return CreatedTask{}, errors.ValidationErrorf(
		"rule reference %q matches neither a task in this import nor an existing task", ref)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

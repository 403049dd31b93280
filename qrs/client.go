package qrs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Client is the typed wrapper over the Repository endpoints used by the
// task-graph core. Create methods are non-idempotent; de-duplication is
// the caller's responsibility.
type Client struct {
	transport *Transport
	log       *zap.SugaredLogger
}

// NewClient creates a Repository client on top of a transport.
func NewClient(transport *Transport, log *zap.SugaredLogger) *Client {
	return &Client{
		transport: transport,
		log:       log.Named("qrs.client"),
	}
}

// decode maps non-2xx statuses onto the error taxonomy and unmarshals the
// body into out (which may be nil for status-only calls).
func decode(resp *Response, out interface{}) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errors.ErrNotFound, "HTTP 404: %s", string(resp.Body))
	case resp.StatusCode >= 400:
		return errors.ServerErrorf(resp.StatusCode, "%s", string(resp.Body))
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrapf(err, "failed to decode Repository response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.transport.Do(ctx, http.MethodGet, path, query, nil, Idempotent)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.transport.Do(ctx, http.MethodPost, path, nil, body, NonIdempotent)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) put(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	resp, err := c.transport.Do(ctx, http.MethodPut, path, query, body, NonIdempotent)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// ListTags fetches the full tag population.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.get(ctx, "/qrs/tag/full", nil, &tags); err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	return tags, nil
}

// ListCustomProperties fetches all custom property definitions.
func (c *Client) ListCustomProperties(ctx context.Context) ([]CustomPropertyDefinition, error) {
	var defs []CustomPropertyDefinition
	if err := c.get(ctx, "/qrs/custompropertydefinition/full", nil, &defs); err != nil {
		return nil, errors.Wrap(err, "failed to list custom properties")
	}
	return defs, nil
}

// ListStreams fetches all streams.
func (c *Client) ListStreams(ctx context.Context) ([]Stream, error) {
	var streams []Stream
	if err := c.get(ctx, "/qrs/stream/full", nil, &streams); err != nil {
		return nil, errors.Wrap(err, "failed to list streams")
	}
	return streams, nil
}

// ListReloadTasks fetches reload tasks, optionally restricted by a QRS
// filter clause.
func (c *Client) ListReloadTasks(ctx context.Context, filter string) ([]ReloadTask, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	var tasks []ReloadTask
	if err := c.get(ctx, "/qrs/reloadtask/full", query, &tasks); err != nil {
		return nil, errors.Wrap(err, "failed to list reload tasks")
	}
	return tasks, nil
}

// ListExternalProgramTasks fetches external program tasks.
func (c *Client) ListExternalProgramTasks(ctx context.Context, filter string) ([]ExternalProgramTask, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	var tasks []ExternalProgramTask
	if err := c.get(ctx, "/qrs/externalprogramtask/full", query, &tasks); err != nil {
		return nil, errors.Wrap(err, "failed to list external program tasks")
	}
	return tasks, nil
}

// ListSchemaEvents fetches all schema events. They are joined to their
// owning tasks client-side by the graph model.
func (c *Client) ListSchemaEvents(ctx context.Context) ([]SchemaEvent, error) {
	var events []SchemaEvent
	if err := c.get(ctx, "/qrs/schemaevent/full", nil, &events); err != nil {
		return nil, errors.Wrap(err, "failed to list schema events")
	}
	return events, nil
}

// ListCompositeEvents fetches all composite events.
func (c *Client) ListCompositeEvents(ctx context.Context) ([]CompositeEvent, error) {
	var events []CompositeEvent
	if err := c.get(ctx, "/qrs/compositeevent/full", nil, &events); err != nil {
		return nil, errors.Wrap(err, "failed to list composite events")
	}
	return events, nil
}

// CreateReloadTask creates a reload task together with its schema events
// in a single Repository call and returns the new task GUID.
func (c *Client) CreateReloadTask(ctx context.Context, spec ReloadTaskCreate) (string, error) {
	var created ReloadTask
	if err := c.post(ctx, "/qrs/reloadtask/create", spec, &created); err != nil {
		return "", errors.Wrapf(err, "failed to create reload task %q", spec.Task.Name)
	}
	return created.ID, nil
}

// CreateExternalProgramTask creates an external program task with its
// schema events and returns the new task GUID.
func (c *Client) CreateExternalProgramTask(ctx context.Context, spec ExternalProgramTaskCreate) (string, error) {
	var created ExternalProgramTask
	if err := c.post(ctx, "/qrs/externalprogramtask/create", spec, &created); err != nil {
		return "", errors.Wrapf(err, "failed to create external program task %q", spec.Task.Name)
	}
	return created.ID, nil
}

// CreateCompositeEvent creates a composite event. Every rule must already
// reference an existing task GUID.
func (c *Client) CreateCompositeEvent(ctx context.Context, event CompositeEvent) (string, error) {
	var created CompositeEvent
	if err := c.post(ctx, "/qrs/compositeevent", event, &created); err != nil {
		return "", errors.Wrapf(err, "failed to create composite event %q", event.Name)
	}
	return created.ID, nil
}

// UploadApp streams QVF bytes to the Repository and returns the new app.
func (c *Client) UploadApp(ctx context.Context, qvf []byte, name string, excludeData bool) (*App, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("keepdata", "false")
	if excludeData {
		query.Set("excludeconnections", "true")
	}
	resp, err := c.transport.Upload(ctx, "/qrs/app/upload", query, "application/vnd.qlik.sense.app", qvf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload app %q", name)
	}
	var app App
	if err := decode(resp, &app); err != nil {
		return nil, errors.Wrapf(err, "failed to upload app %q", name)
	}
	return &app, nil
}

// ListApps fetches all apps, including their tags and custom properties.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.get(ctx, "/qrs/app/full", nil, &apps); err != nil {
		return nil, errors.Wrap(err, "failed to list apps")
	}
	return apps, nil
}

// GetAppByID fetches one app.
func (c *Client) GetAppByID(ctx context.Context, appID string) (*App, error) {
	var app App
	if err := c.get(ctx, fmt.Sprintf("/qrs/app/%s", appID), nil, &app); err != nil {
		return nil, errors.Wrapf(err, "failed to get app %s", appID)
	}
	return &app, nil
}

// UpdateApp PUTs a modified app back (tags, custom properties, owner).
func (c *Client) UpdateApp(ctx context.Context, app *App) error {
	if err := c.put(ctx, fmt.Sprintf("/qrs/app/%s", app.ID), nil, app, nil); err != nil {
		return errors.Wrapf(err, "failed to update app %s", app.ID)
	}
	return nil
}

// PublishApp publishes an app to a stream.
func (c *Client) PublishApp(ctx context.Context, appID, streamID string) error {
	query := url.Values{}
	query.Set("stream", streamID)
	if err := c.put(ctx, fmt.Sprintf("/qrs/app/%s/publish", appID), query, nil, nil); err != nil {
		return errors.Wrapf(err, "failed to publish app %s to stream %s", appID, streamID)
	}
	return nil
}

// GetUser looks up a user by directory and id.
func (c *Client) GetUser(ctx context.Context, userDirectory, userID string) (*User, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("userDirectory eq '%s' and userId eq '%s'", userDirectory, userID))
	var users []User
	if err := c.get(ctx, "/qrs/user/full", query, &users); err != nil {
		return nil, errors.Wrapf(err, "failed to look up user %s\\%s", userDirectory, userID)
	}
	if len(users) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "user %s\\%s", userDirectory, userID)
	}
	return &users[0], nil
}

// SetAppOwner changes the owner of an app.
func (c *Client) SetAppOwner(ctx context.Context, appID, userDirectory, userID string) error {
	user, err := c.GetUser(ctx, userDirectory, userID)
	if err != nil {
		return err
	}
	app, err := c.GetAppByID(ctx, appID)
	if err != nil {
		return err
	}
	app.Owner = user
	return c.UpdateApp(ctx, app)
}

// UpdateReloadTask PUTs a modified reload task back (tags, custom
// properties). Task definitions are otherwise immutable within a run.
func (c *Client) UpdateReloadTask(ctx context.Context, task *ReloadTask) error {
	if err := c.put(ctx, fmt.Sprintf("/qrs/reloadtask/%s", task.ID), nil, task, nil); err != nil {
		return errors.Wrapf(err, "failed to update reload task %s", task.ID)
	}
	return nil
}

// UpdateExternalProgramTask PUTs a modified external program task back.
func (c *Client) UpdateExternalProgramTask(ctx context.Context, task *ExternalProgramTask) error {
	if err := c.put(ctx, fmt.Sprintf("/qrs/externalprogramtask/%s", task.ID), nil, task, nil); err != nil {
		return errors.Wrapf(err, "failed to update external program task %s", task.ID)
	}
	return nil
}

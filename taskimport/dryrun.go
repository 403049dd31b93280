package taskimport

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/qrs"
)

// dryRunRepository logs every payload that a live run would send and
// hands back synthetic GUIDs so cross-references keep resolving. Reads
// still go to the real Repository; only writes are intercepted.
type dryRunRepository struct {
	reads RepositoryAPI
	apps  map[string]*qrs.App // synthetic uploads, served back to GetAppByID
	log   *zap.SugaredLogger
}

func newDryRunRepository(reads RepositoryAPI, log *zap.SugaredLogger) *dryRunRepository {
	return &dryRunRepository{reads: reads, apps: make(map[string]*qrs.App), log: log.Named("dryrun")}
}

func (d *dryRunRepository) emit(what string, payload interface{}) string {
	guid := uuid.NewString()
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte(err.Error())
	}
	d.log.Infow("Would create "+what, "syntheticId", guid, "payload", string(body))
	return guid
}

func (d *dryRunRepository) CreateReloadTask(_ context.Context, spec qrs.ReloadTaskCreate) (string, error) {
	return d.emit("reload task", spec), nil
}

func (d *dryRunRepository) CreateExternalProgramTask(_ context.Context, spec qrs.ExternalProgramTaskCreate) (string, error) {
	return d.emit("external program task", spec), nil
}

func (d *dryRunRepository) CreateCompositeEvent(_ context.Context, event qrs.CompositeEvent) (string, error) {
	return d.emit("composite event", event), nil
}

func (d *dryRunRepository) UploadApp(_ context.Context, qvf []byte, name string, excludeData bool) (*qrs.App, error) {
	guid := uuid.NewString()
	d.log.Infow("Would upload app", "app", name, "bytes", len(qvf), "excludeDataConnections", excludeData, "syntheticId", guid)
	app := &qrs.App{ID: guid, Name: name}
	d.apps[guid] = app
	return app, nil
}

func (d *dryRunRepository) GetAppByID(ctx context.Context, appID string) (*qrs.App, error) {
	if app, ok := d.apps[appID]; ok {
		return app, nil
	}
	return d.reads.GetAppByID(ctx, appID)
}

func (d *dryRunRepository) UpdateApp(_ context.Context, app *qrs.App) error {
	d.emit("app update", app)
	return nil
}

func (d *dryRunRepository) PublishApp(_ context.Context, appID, streamID string) error {
	d.log.Infow("Would publish app", "app", appID, "stream", streamID)
	return nil
}

func (d *dryRunRepository) SetAppOwner(_ context.Context, appID, userDirectory, userID string) error {
	d.log.Infow("Would change app owner", "app", appID, "userDirectory", userDirectory, "userId", userID)
	return nil
}

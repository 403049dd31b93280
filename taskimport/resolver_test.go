package taskimport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/qrs"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

const (
	existingAppID  = "11111111-1111-1111-1111-111111111111"
	existingTaskID = "22222222-2222-2222-2222-222222222222"
	streamID       = "33333333-3333-3333-3333-333333333333"
	unknownGUID    = "99999999-9999-9999-9999-999999999999"
)

type fakeAppLookup struct {
	apps  map[string]*qrs.App
	calls int
}

func (f *fakeAppLookup) GetAppByID(_ context.Context, appID string) (*qrs.App, error) {
	f.calls++
	if app, ok := f.apps[appID]; ok {
		return app, nil
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "app %s", appID)
}

func newTestResolver(t *testing.T) (*Resolver, *fakeAppLookup) {
	t.Helper()
	caches := qrs.NewCaches(
		[]qrs.Tag{{ID: "t1", Name: "Finance"}},
		[]qrs.CustomPropertyDefinition{
			{ID: "p1", Name: "Dept", ChoiceValues: []string{"Sales", "HR"}},
		},
		[]qrs.Stream{{ID: streamID, Name: "Everyone"}},
	)
	model := taskgraph.New(testLogger())
	model.AddTask(&taskgraph.Task{ID: existingTaskID, Name: "Existing", Kind: taskgraph.KindReload})

	apps := &fakeAppLookup{apps: map[string]*qrs.App{
		existingAppID: {ID: existingAppID, Name: "Sales"},
	}}
	return NewResolver(caches, model, apps, testLogger()), apps
}

func TestResolveTags(t *testing.T) {
	r, _ := newTestResolver(t)

	tags, err := r.ResolveTags([]string{"Finance"})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "t1", tags[0].ID)

	_, err = r.ResolveTags([]string{"finance"}) // case-sensitive
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestResolveCustomProperties(t *testing.T) {
	r, _ := newTestResolver(t)

	values, err := r.ResolveCustomProperties([]PropertyRef{{Name: "Dept", Value: "Sales"}})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "Dept", values[0].Definition.Name)

	_, err = r.ResolveCustomProperties([]PropertyRef{{Name: "Dept", Value: "Engineering"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not among the choices")

	_, err = r.ResolveCustomProperties([]PropertyRef{{Name: "Nope", Value: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestResolveAppRefExistingGUID(t *testing.T) {
	r, apps := newTestResolver(t)
	ctx := context.Background()

	guid, err := r.ResolveAppRef(ctx, existingAppID)
	require.NoError(t, err)
	assert.Equal(t, existingAppID, guid)

	// Second resolution is served from the cache
	guid, err = r.ResolveAppRef(ctx, existingAppID)
	require.NoError(t, err)
	assert.Equal(t, existingAppID, guid)
	assert.Equal(t, 1, apps.calls)
}

func TestResolveAppRefMissingGUID(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.ResolveAppRef(context.Background(), unknownGUID)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestResolveAppRefNewApp(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := r.ResolveAppRef(ctx, "newapp-1")
	require.Error(t, err) // nothing uploaded yet

	r.RegisterUploadedApp(1, existingAppID)
	guid, err := r.ResolveAppRef(ctx, "newapp-1")
	require.NoError(t, err)
	assert.Equal(t, existingAppID, guid)

	_, err = r.ResolveAppRef(ctx, "newapp-zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")

	_, err = r.ResolveAppRef(ctx, "not-a-guid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a GUID nor newapp-<n>")
}

func TestResolveStream(t *testing.T) {
	r, _ := newTestResolver(t)

	byID, ok := r.ResolveStream(streamID)
	require.True(t, ok)
	assert.Equal(t, "Everyone", byID.Name)

	byName, ok := r.ResolveStream("Everyone")
	require.True(t, ok)
	assert.Equal(t, streamID, byName.ID)

	_, ok = r.ResolveStream("Nobody")
	assert.False(t, ok)
}

func TestResolveRuleRefPrefersLocal(t *testing.T) {
	r, _ := newTestResolver(t)

	local := map[string]CreatedTask{
		"1": {GUID: "44444444-4444-4444-4444-444444444444", Kind: taskgraph.KindExternalProgram},
		// Local id shadowing an existing GUID must win
		existingTaskID: {GUID: "55555555-5555-5555-5555-555555555555", Kind: taskgraph.KindReload},
	}

	created, err := r.ResolveRuleRef("1", local)
	require.NoError(t, err)
	assert.Equal(t, taskgraph.KindExternalProgram, created.Kind)

	created, err = r.ResolveRuleRef(existingTaskID, local)
	require.NoError(t, err)
	assert.Equal(t, "55555555-5555-5555-5555-555555555555", created.GUID)

	created, err = r.ResolveRuleRef(existingTaskID, nil)
	require.NoError(t, err)
	assert.Equal(t, existingTaskID, created.GUID)

	_, err = r.ResolveRuleRef(unknownGUID, local)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

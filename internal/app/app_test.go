package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

var fixedNow = func() time.Time {
	return time.Date(2025, 3, 4, 4, 30, 0, 0, time.UTC)
}

func newApp(t *testing.T, opts Options) *App {
	t.Helper()
	if opts.Transit == nil {
		opts.Transit = datamall.NewMockClient()
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	a, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_RequiresTransitAndModelPath(t *testing.T) {
	_, err := New(context.Background(), Options{ModelPath: "x.json"})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = New(context.Background(), Options{Transit: datamall.NewMockClient()})
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestNew_UntrainedWithoutBootstrap(t *testing.T) {
	a := newApp(t, Options{ModelPath: filepath.Join(t.TempDir(), "model.json")})

	assert.False(t, a.Predictor.Loaded())
	assert.Nil(t, a.Store)
	assert.Equal(t, []string{"HC001", "HC002", "HC003"}, a.Registry.IDs())
}

func TestNew_BootstrapThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	first := newApp(t, Options{ModelPath: path, Bootstrap: true})
	require.True(t, first.Predictor.Loaded())
	info := first.Predictor.Info()
	assert.Equal(t, "synthetic", info.Source)
	assert.Equal(t, BootstrapSamples, info.Samples)
	_, err := os.Stat(path)
	require.NoError(t, err)

	second := newApp(t, Options{ModelPath: path})
	assert.True(t, second.Predictor.Loaded())
	assert.Equal(t, info.TrainedAt.UTC(), second.Predictor.Info().TrainedAt.UTC())
}

func TestNew_CorruptModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := New(context.Background(), Options{
		Transit:   datamall.NewMockClient(),
		ModelPath: path,
		Bootstrap: true,
	})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestNew_MappingsFile(t *testing.T) {
	dir := t.TempDir()
	mappingsPath := filepath.Join(dir, "mappings.json")
	require.NoError(t, os.WriteFile(mappingsPath,
		[]byte(`{"HC099":{"name":"Test","carparks":["CP9"],"bus_stops":[]}}`), 0600))

	a := newApp(t, Options{
		ModelPath:    filepath.Join(dir, "model.json"),
		DatabasePath: ":memory:",
		MappingsPath: mappingsPath,
	})
	assert.Equal(t, []string{"HC099"}, a.Registry.IDs())

	_, err := New(context.Background(), Options{
		Transit:      datamall.NewMockClient(),
		ModelPath:    filepath.Join(dir, "model.json"),
		MappingsPath: filepath.Join(dir, "missing.json"),
	})
	require.Error(t, err)
}

func TestSyncMappings(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := newApp(t, Options{
		ModelPath:    filepath.Join(dir, "model.json"),
		DatabasePath: ":memory:",
		Bootstrap:    true,
	})

	_, _, err := a.SyncMappings(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, a.Store.SaveHawkerCenters(ctx, []model.HawkerCenter{{
		ID:        "HC010",
		Name:      "Tiong Bahru Market",
		Latitude:  1.2850,
		Longitude: 103.8327,
		Carparks:  []model.NearbyCarpark{{ID: "CP77"}},
		BusStops: []model.NearbyBusStop{
			{PlaceID: "a", Code: "10139", Verified: true},
			{PlaceID: "b", Code: "10141"},
		},
	}}))

	n, persisted, err := a.SyncMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, persisted)

	got, ok := a.Registry.Get("HC010")
	require.True(t, ok)
	assert.Equal(t, []string{"CP77"}, got.Carparks)
	assert.Equal(t, []string{"10139"}, got.BusStops)

	reloaded := newApp(t, Options{ModelPath: a.ModelPath})
	assert.Equal(t, []string{"HC010"}, reloaded.Registry.IDs())
}

func TestSyncMappings_NoStore(t *testing.T) {
	a := newApp(t, Options{ModelPath: filepath.Join(t.TempDir(), "model.json")})
	_, _, err := a.SyncMappings(context.Background())
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

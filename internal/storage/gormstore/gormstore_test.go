package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/database"
	"github.com/trailmark/routecapture/pkg/core"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	m := database.NewManager(config.DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "routes.db"),
	}, zerolog.Nop())
	require.NoError(t, m.Connect())

	b := New(m, zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func penRecord() core.GeometryRecord {
	return core.GeometryRecord{
		DrawingMode: core.DrawingModePen,
		WaypointDetails: []core.WaypointDetail{
			{Lat: 48.1, Lng: 11.5, Title: "Drawing Start", Description: "Start of drawn path"},
			{Lat: 48.2, Lng: 11.6, Title: "Drawing End", Description: "End of drawn path"},
		},
		Metadata: core.GeometryMetadata{
			Pins:    []core.Coordinate{},
			Options: map[string]any{"surface": "gravel"},
			RawPath: []core.PathPoint{
				{Latitude: 48.1, Longitude: 11.5, Timestamp: 1},
				{Latitude: 48.15, Longitude: 11.55, Timestamp: 2},
				{Latitude: 48.2, Longitude: 11.6, Timestamp: 3},
			},
			EncodedPath:  "_p~iF~ps|U_ulLnnqC",
			LengthMeters: 13300,
		},
	}
}

func TestSaveAndGetRoute(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	id, err := b.SaveRoute(ctx, penRecord(), core.RouteForm{Name: "Alpine", Description: "ridge"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := b.GetRoute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alpine", got.Name)
	assert.Equal(t, "ridge", got.Description)
	assert.Equal(t, core.DrawingModePen, got.Record.DrawingMode)
	assert.Equal(t, penRecord().WaypointDetails, got.Record.WaypointDetails)
	assert.Equal(t, penRecord().Metadata.RawPath, got.Record.Metadata.RawPath)
	assert.Equal(t, "gravel", got.Record.Metadata.Options["surface"])
	assert.NotNil(t, got.Record.Metadata.Pins)
}

func TestSaveRoute_DerivedColumns(t *testing.T) {
	b := newTestBackend(t)

	id, err := b.SaveRoute(context.Background(), penRecord(), core.RouteForm{Name: "cols"})
	require.NoError(t, err)

	var row Route
	require.NoError(t, b.manager.DB.First(&row, "id = ?", id).Error)
	assert.Equal(t, 2, row.PointCount)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", row.EncodedPath)
	assert.True(t, strings.HasPrefix(row.PathWKT, "LINESTRING"), row.PathWKT)
	// drawn through the raw samples, like the KML export
	assert.Contains(t, row.PathWKT, "11.55 48.15")
}

func TestGetRoute_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.GetRoute(context.Background(), "nope")
	if !errors.Is(err, core.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestListRoutes(t *testing.T) {
	b := newTestBackend(t)
	base := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	tick := 0
	b.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	ctx := context.Background()
	older, err := b.SaveRoute(ctx, penRecord(), core.RouteForm{Name: "older"})
	require.NoError(t, err)

	rec := core.GeometryRecord{
		DrawingMode:     core.DrawingModeWaypoint,
		WaypointDetails: []core.WaypointDetail{{Lat: 1, Lng: 2, Title: "Pin"}},
		Metadata: core.GeometryMetadata{
			Pins:              []core.Coordinate{{Latitude: 1, Longitude: 2}},
			Options:           map[string]any{},
			ActualDrawingMode: "pin",
		},
	}
	newer, err := b.SaveRoute(ctx, rec, core.RouteForm{Name: "newer"})
	require.NoError(t, err)

	list, err := b.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, "pin", list[0].DrawingMode)
	assert.Equal(t, 1, list[0].Points)
	assert.Equal(t, older, list[1].ID)
	assert.Equal(t, "pen", list[1].DrawingMode)
	assert.InDelta(t, 13300, list[1].LengthMeters, 1e-6)
}

func TestListRoutes_Empty(t *testing.T) {
	b := newTestBackend(t)

	list, err := b.ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func openMemoryBackend(t *testing.T, dumps string) *Backend {
	t.Helper()
	m := database.NewManager(config.DBConfig{Driver: "sqlite", DumpDir: dumps}, zerolog.Nop())
	require.NoError(t, m.Connect())
	require.True(t, m.InMemory())

	b := New(m, zerolog.Nop())
	require.NoError(t, b.Init())
	return b
}

func TestMemoryDatabase_RestoredFromDump(t *testing.T) {
	dumps := filepath.Join(t.TempDir(), "dumps")
	ctx := context.Background()

	first := openMemoryBackend(t, dumps)
	id, err := first.SaveRoute(ctx, penRecord(), core.RouteForm{Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	paths, err := database.GetBackupDBPaths(dumps)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(paths[0]), "routes_"), paths[0])

	second := openMemoryBackend(t, dumps)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetRoute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)
	assert.Equal(t, penRecord().Metadata.RawPath, got.Record.Metadata.RawPath)
}

func TestMemoryDatabase_NoDumpDirStartsEmpty(t *testing.T) {
	b := openMemoryBackend(t, "")
	t.Cleanup(func() { _ = b.Close() })

	list, err := b.ListRoutes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileDatabase_NotDumped(t *testing.T) {
	dumps := filepath.Join(t.TempDir(), "dumps")
	m := database.NewManager(config.DBConfig{
		Driver:  "sqlite",
		Path:    filepath.Join(t.TempDir(), "routes.db"),
		DumpDir: dumps,
	}, zerolog.Nop())
	require.NoError(t, m.Connect())
	b := New(m, zerolog.Nop())
	require.NoError(t, b.Init())

	require.NoError(t, b.Close())

	_, err := database.GetBackupDBPaths(dumps)
	assert.Error(t, err, "no dump dir is created for a file database")
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/storage/gormstore"
	"github.com/trailmark/routecapture/internal/storage/memory"
	"github.com/trailmark/routecapture/pkg/core"
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Type: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	_, ok := b.(*memory.Backend)
	assert.True(t, ok, "expected memory backend, got %T", b)
}

func TestNewBackend_Sqlite(t *testing.T) {
	cfg := config.StorageConfig{
		Type: "sqlite",
		DB:   config.DBConfig{Path: filepath.Join(t.TempDir(), "routes.db")},
	}
	b, err := NewBackend(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.(*gormstore.Backend)
	require.True(t, ok, "expected gorm backend, got %T", b)
	require.NoError(t, b.Init())

	id, err := b.SaveRoute(context.Background(), core.GeometryRecord{
		DrawingMode:     core.DrawingModeWaypoint,
		WaypointDetails: []core.WaypointDetail{{Lat: 1, Lng: 1}},
		Metadata:        core.GeometryMetadata{Pins: []core.Coordinate{}, Options: map[string]any{}},
	}, core.RouteForm{Name: "factory"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(config.StorageConfig{Type: "s3"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

// Package gormstore persists routes through GORM on SQLite or PostgreSQL.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/database"
	"github.com/trailmark/routecapture/internal/geo"
	"github.com/trailmark/routecapture/pkg/core"
)

// Backend stores routes in a relational database
type Backend struct {
	manager *database.Manager
	log     zerolog.Logger
	now     func() time.Time
}

// New wraps a connected database manager
func New(m *database.Manager, log zerolog.Logger) *Backend {
	return &Backend{
		manager: m,
		log:     log.With().Str("storage", "gorm").Logger(),
		now:     time.Now,
	}
}

const dumpPrefix = "routes_"

// Init migrates the routes table. An in-memory database with a dump
// directory is seeded from the newest dump.
func (b *Backend) Init() error {
	if err := b.manager.Migrate(&Route{}); err != nil {
		return err
	}
	if b.manager.InMemory() && b.manager.DumpDir != "" {
		return b.restoreLatestDump()
	}
	return nil
}

// Close closes the database connection, dumping an in-memory database first
// when a dump directory is set
func (b *Backend) Close() error {
	if b.manager.IsValid && b.manager.InMemory() && b.manager.DumpDir != "" {
		if err := b.dump(); err != nil {
			b.log.Error().Err(err).Msg("Failed to dump memory database")
		}
	}
	return b.manager.Close()
}

func (b *Backend) dump() error {
	if err := os.MkdirAll(b.manager.DumpDir, 0755); err != nil {
		return fmt.Errorf("creating dump dir: %w", err)
	}
	name := dumpPrefix + b.now().UTC().Format("20060102T150405.000000000") + ".db"
	target := filepath.Join(b.manager.DumpDir, name)
	if err := b.manager.DumpMemoryToDisk(target); err != nil {
		return err
	}
	b.log.Info().Str("path", target).Msg("Memory database dumped")
	return nil
}

func (b *Backend) restoreLatestDump() error {
	paths, err := database.GetBackupDBPaths(b.manager.DumpDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing dumps: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)
	latest := paths[len(paths)-1]

	src := database.NewManager(config.DBConfig{Driver: "sqlite", Path: latest}, b.log)
	if err := src.Connect(); err != nil {
		return fmt.Errorf("opening dump %s: %w", latest, err)
	}
	defer func() { _ = src.Close() }()

	var rows []Route
	if err := src.DB.Find(&rows).Error; err != nil {
		return fmt.Errorf("reading dump %s: %w", latest, err)
	}
	if len(rows) > 0 {
		if err := b.manager.DB.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("restoring dump %s: %w", latest, err)
		}
	}

	b.log.Info().Str("path", latest).Int("routes", len(rows)).Msg("Restored memory database from dump")
	return nil
}

// SaveRoute inserts a new row and returns its id
func (b *Backend) SaveRoute(ctx context.Context, rec core.GeometryRecord, form core.RouteForm) (string, error) {
	row, err := toRow(rec, form)
	if err != nil {
		return "", err
	}
	row.ID = uuid.NewString()
	row.CreatedAt = b.now().UTC()

	if err := b.manager.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("inserting route: %w", err)
	}

	b.log.Debug().Str("id", row.ID).Str("mode", row.DrawingMode).Int("points", row.PointCount).Msg("Route saved")
	return row.ID, nil
}

// GetRoute loads a route by id
func (b *Backend) GetRoute(ctx context.Context, id string) (core.StoredRoute, error) {
	var row Route
	err := b.manager.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.StoredRoute{}, fmt.Errorf("%w: %s", core.ErrRouteNotFound, id)
	}
	if err != nil {
		return core.StoredRoute{}, fmt.Errorf("loading route: %w", err)
	}
	return fromRow(row)
}

// ListRoutes returns summaries from the derived columns, newest first
func (b *Backend) ListRoutes(ctx context.Context) ([]core.RouteSummary, error) {
	var rows []Route
	err := b.manager.DB.WithContext(ctx).
		Select("id", "created_at", "name", "drawing_mode", "actual_drawing_mode", "point_count", "length_meters").
		Order("created_at DESC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}

	out := make([]core.RouteSummary, 0, len(rows))
	for _, r := range rows {
		mode := r.ActualDrawingMode
		if mode == "" {
			mode = r.DrawingMode
		}
		out = append(out, core.RouteSummary{
			ID:           r.ID,
			Name:         r.Name,
			DrawingMode:  mode,
			Points:       r.PointCount,
			LengthMeters: r.LengthMeters,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

func toRow(rec core.GeometryRecord, form core.RouteForm) (Route, error) {
	details, err := json.Marshal(rec.WaypointDetails)
	if err != nil {
		return Route{}, fmt.Errorf("encoding waypoint details: %w", err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return Route{}, fmt.Errorf("encoding metadata: %w", err)
	}

	return Route{
		Name:              form.Name,
		Description:       form.Description,
		DrawingMode:       rec.DrawingMode,
		ActualDrawingMode: rec.Metadata.ActualDrawingMode,
		PointCount:        len(rec.WaypointDetails),
		LengthMeters:      rec.Metadata.LengthMeters,
		EncodedPath:       rec.Metadata.EncodedPath,
		PathWKT:           geo.WKT(rec.Line()),
		WaypointDetails:   details,
		Metadata:          meta,
	}, nil
}

func fromRow(row Route) (core.StoredRoute, error) {
	var rec core.GeometryRecord
	rec.DrawingMode = row.DrawingMode
	if err := json.Unmarshal(row.WaypointDetails, &rec.WaypointDetails); err != nil {
		return core.StoredRoute{}, fmt.Errorf("decoding waypoint details: %w", err)
	}
	if err := json.Unmarshal(row.Metadata, &rec.Metadata); err != nil {
		return core.StoredRoute{}, fmt.Errorf("decoding metadata: %w", err)
	}
	return core.StoredRoute{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
		Record:      rec,
	}, nil
}

// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/database"
	"github.com/trailmark/routecapture/internal/storage/gormstore"
	"github.com/trailmark/routecapture/internal/storage/memory"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "gorm", "sqlite", "postgres":
		dbCfg := cfg.DB
		if cfg.Type != "gorm" {
			dbCfg.Driver = cfg.Type
		}
		m := database.NewManager(dbCfg, log)
		if err := m.Connect(); err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		return gormstore.New(m, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trailmark/routecapture/internal/cache"
	"github.com/trailmark/routecapture/internal/config"
	"github.com/trailmark/routecapture/internal/geocode"
	"github.com/trailmark/routecapture/internal/influx"
	"github.com/trailmark/routecapture/internal/logging"
	"github.com/trailmark/routecapture/internal/storage"
	"github.com/trailmark/routecapture/pkg/capture"
)

// app holds the services built from the config file.
type app struct {
	Logger   zerolog.Logger
	logOut   *logging.Output
	Storage  storage.Backend
	Geocoder *geocode.Client
	Cache    cache.PlaceCache
	Influx   *influx.Manager
	redis    *redis.Client
}

func loadConfig() (dir string, err error) {
	dir = os.Getenv(ConfigDirEnv)
	if dir == "" {
		dir = "."
	}
	if err := config.Load(dir); err != nil {
		config.LoadDefaults()
		return dir, err
	}
	return dir, nil
}

func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	dir, cfgErr := loadConfig()

	logOut, err := logging.Setup(config.GetLoggingConfig(), AppName, stderr)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	a := &app{Logger: logOut.Logger, logOut: logOut}

	if cfgErr != nil {
		a.Logger.Warn().Err(cfgErr).Str("dir", dir).Msg("Config file not loaded, using defaults")
	}
	a.Logger.Info().Str("version", CurrentVersion).Str("build", BuildDate).Msg("Starting up")

	a.Storage, err = storage.NewBackend(config.GetStorageConfig(), a.Logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	if err := a.Storage.Init(); err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	a.setupGeocoder(ctx)
	a.setupInflux(ctx, dir)
	return a, nil
}

func (a *app) setupGeocoder(ctx context.Context) {
	cfg := config.GetGeocoderConfig()
	if !cfg.Enabled {
		a.Logger.Info().Msg("Place name lookups disabled")
		return
	}

	client := geocode.New(cfg.BaseURL,
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		geocode.WithLanguage(cfg.Language),
		geocode.WithUserAgent(cfg.UserAgent),
	)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Healthcheck(hctx); err != nil {
		a.Logger.Warn().Err(err).Str("url", cfg.BaseURL).Msg("Geocoder unreachable, place name lookups disabled")
		return
	}
	a.Geocoder = client

	switch cfg.Cache {
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.RedisAddr, 0)
		if err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, caching place names in memory")
			a.Cache = cache.NewMemoryPlaceCache()
			return
		}
		a.redis = client
		a.Cache = cache.NewRedisPlaceCache(client, cfg.CacheTTL)
	case "none", "":
	default:
		a.Cache = cache.NewMemoryPlaceCache()
	}
}

func (a *app) setupInflux(ctx context.Context, dir string) {
	m := influx.NewManager(config.GetInfluxConfig(), a.Logger, filepath.Join(dir, "influx_backup.lp.gz"))
	err := m.Connect(ctx)
	if errors.Is(err, influx.ErrDisabled) {
		return
	}
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Route telemetry unavailable")
		return
	}
	a.Influx = m
}

// engineOptions wires the services into a capture engine.
func (a *app) engineOptions() []capture.Option {
	opts := []capture.Option{
		capture.WithLogger(a.Logger),
		capture.WithStorage(a.Storage),
	}
	if a.Geocoder != nil {
		opts = append(opts, capture.WithGeocoder(a.Geocoder))
	}
	if a.Cache != nil {
		opts = append(opts, capture.WithPlaceCache(a.Cache))
	}
	if a.Influx != nil {
		opts = append(opts, capture.WithTelemetry(a.Influx))
	}
	return opts
}

func (a *app) Close() {
	if a.Influx != nil {
		if err := a.Influx.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing influx")
		}
	}
	if mc, ok := a.Cache.(*cache.MemoryPlaceCache); ok {
		a.Logger.Debug().Int("places", mc.Len()).Msg("Dropping place cache")
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Closing storage")
		}
	}
	if a.logOut != nil {
		_ = a.logOut.Close()
	}
}

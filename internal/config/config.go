package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/trailmark/routecapture/internal/logging"
)

// FileName is the config file looked up in the config directory.
const FileName = "routecapture.cfg.json"

// CaptureConfig holds sampler, enrichment and waypoint cap settings.
type CaptureConfig struct {
	MinDistanceMeters float64       `json:"minDistanceMeters" mapstructure:"minDistanceMeters"`
	MinInterval       time.Duration `json:"minInterval" mapstructure:"minInterval"`
	FallbackScale     float64       `json:"fallbackScale" mapstructure:"fallbackScale"`
	StaggerStep       time.Duration `json:"staggerStep" mapstructure:"staggerStep"`
	MaxStaggerDelay   time.Duration `json:"maxStaggerDelay" mapstructure:"maxStaggerDelay"`
	LookupTimeout     time.Duration `json:"lookupTimeout" mapstructure:"lookupTimeout"`
	SoftWaypointLimit int           `json:"softWaypointLimit" mapstructure:"softWaypointLimit"`
	MaxWaypoints      int           `json:"maxWaypoints" mapstructure:"maxWaypoints"`
	// BlockingCallbacks makes place name and screen conversion callbacks wait
	// for room on a full event queue instead of being dropped.
	BlockingCallbacks bool `json:"blockingCallbacks" mapstructure:"blockingCallbacks"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// DBConfig holds relational storage settings. Driver is "sqlite" or "postgres".
type DBConfig struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	Path     string `json:"path" mapstructure:"path"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	// DumpDir receives a copy of an in-memory SQLite database on close. The
	// newest copy seeds the next in-memory database.
	DumpDir string `json:"dumpDir" mapstructure:"dumpDir"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	DB     DBConfig     `json:"db" mapstructure:"db"`
}

// GeocoderConfig holds reverse geocoding and place cache settings.
type GeocoderConfig struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	BaseURL   string        `json:"baseUrl" mapstructure:"baseUrl"`
	UserAgent string        `json:"userAgent" mapstructure:"userAgent"`
	Language  string        `json:"language" mapstructure:"language"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	Cache     string        `json:"cache" mapstructure:"cache"`
	RedisAddr string        `json:"redisAddr" mapstructure:"redisAddr"`
	CacheTTL  time.Duration `json:"cacheTtl" mapstructure:"cacheTtl"`
}

// InfluxConfig holds route telemetry settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.logsDir", "./logs")
	viper.SetDefault("logging.fileEnabled", false)
	viper.SetDefault("logging.graylogEnabled", false)
	viper.SetDefault("logging.graylogAddress", "localhost:12201")

	viper.SetDefault("capture.minDistanceMeters", 2.0)
	viper.SetDefault("capture.minInterval", "50ms")
	viper.SetDefault("capture.fallbackScale", 1e-5)
	viper.SetDefault("capture.staggerStep", "500ms")
	viper.SetDefault("capture.maxStaggerDelay", "5s")
	viper.SetDefault("capture.lookupTimeout", "10s")
	viper.SetDefault("capture.softWaypointLimit", 5)
	viper.SetDefault("capture.maxWaypoints", 8)
	viper.SetDefault("capture.blockingCallbacks", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./routes")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.db.driver", "sqlite")
	viper.SetDefault("storage.db.path", "./routes.db")
	viper.SetDefault("storage.db.host", "localhost")
	viper.SetDefault("storage.db.port", "5432")
	viper.SetDefault("storage.db.username", "postgres")
	viper.SetDefault("storage.db.password", "postgres")
	viper.SetDefault("storage.db.database", "routecapture")
	viper.SetDefault("storage.db.dumpDir", "")

	viper.SetDefault("geocoder.enabled", true)
	viper.SetDefault("geocoder.baseUrl", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocoder.userAgent", "routecapture/1.0")
	viper.SetDefault("geocoder.language", "en")
	viper.SetDefault("geocoder.timeout", "10s")
	viper.SetDefault("geocoder.cache", "memory")
	viper.SetDefault("geocoder.redisAddr", "localhost:6379")
	viper.SetDefault("geocoder.cacheTtl", "24h")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "routecapture")
	viper.SetDefault("influx.bucket", "routes")
}

// LoadDefaults registers defaults without reading a file, for tools that run
// without a config directory.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCaptureConfig returns the capture configuration.
func GetCaptureConfig() CaptureConfig {
	return CaptureConfig{
		MinDistanceMeters: viper.GetFloat64("capture.minDistanceMeters"),
		MinInterval:       viper.GetDuration("capture.minInterval"),
		FallbackScale:     viper.GetFloat64("capture.fallbackScale"),
		StaggerStep:       viper.GetDuration("capture.staggerStep"),
		MaxStaggerDelay:   viper.GetDuration("capture.maxStaggerDelay"),
		LookupTimeout:     viper.GetDuration("capture.lookupTimeout"),
		SoftWaypointLimit: viper.GetInt("capture.softWaypointLimit"),
		MaxWaypoints:      viper.GetInt("capture.maxWaypoints"),
		BlockingCallbacks: viper.GetBool("capture.blockingCallbacks"),
	}
}

// GetStorageConfig returns the storage configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		DB: DBConfig{
			Driver:   viper.GetString("storage.db.driver"),
			Path:     viper.GetString("storage.db.path"),
			Host:     viper.GetString("storage.db.host"),
			Port:     viper.GetString("storage.db.port"),
			Username: viper.GetString("storage.db.username"),
			Password: viper.GetString("storage.db.password"),
			Database: viper.GetString("storage.db.database"),
			DumpDir:  viper.GetString("storage.db.dumpDir"),
		},
	}
}

// GetGeocoderConfig returns the reverse geocoder configuration.
func GetGeocoderConfig() GeocoderConfig {
	return GeocoderConfig{
		Enabled:   viper.GetBool("geocoder.enabled"),
		BaseURL:   viper.GetString("geocoder.baseUrl"),
		UserAgent: viper.GetString("geocoder.userAgent"),
		Language:  viper.GetString("geocoder.language"),
		Timeout:   viper.GetDuration("geocoder.timeout"),
		Cache:     viper.GetString("geocoder.cache"),
		RedisAddr: viper.GetString("geocoder.redisAddr"),
		CacheTTL:  viper.GetDuration("geocoder.cacheTtl"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetLoggingConfig returns the logging configuration.
func GetLoggingConfig() logging.Config {
	return logging.Config{
		Level:          viper.GetString("logging.level"),
		LogsDir:        viper.GetString("logging.logsDir"),
		FileEnabled:    viper.GetBool("logging.fileEnabled"),
		GraylogEnabled: viper.GetBool("logging.graylogEnabled"),
		GraylogAddress: viper.GetString("logging.graylogAddress"),
	}
}

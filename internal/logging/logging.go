package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Config controls where log output goes.
type Config struct {
	Level          string `json:"level" mapstructure:"level"`
	LogsDir        string `json:"logsDir" mapstructure:"logsDir"`
	FileEnabled    bool   `json:"fileEnabled" mapstructure:"fileEnabled"`
	GraylogEnabled bool   `json:"graylogEnabled" mapstructure:"graylogEnabled"`
	GraylogAddress string `json:"graylogAddress" mapstructure:"graylogAddress"`
}

// Output is a configured logger together with the sinks it owns.
type Output struct {
	Logger zerolog.Logger
	// FilePath is empty when file logging is disabled.
	FilePath string

	closers []io.Closer
}

// Close releases the log file and Graylog connection.
func (o *Output) Close() error {
	var firstErr error
	for _, c := range o.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.closers = nil
	return firstErr
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// ParseLevel maps a config string to a zerolog level. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the application logger. Console output goes to console; the log
// file and Graylog are added when enabled in cfg.
func Setup(cfg Config, name string, console io.Writer) (*Output, error) {
	if console == nil {
		console = os.Stdout
	}

	out := &Output{}
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		},
	}

	if cfg.FileEnabled {
		if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		out.FilePath = LogFilePath(cfg.LogsDir, name, time.Now())
		file, err := os.OpenFile(out.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out.closers = append(out.closers, file)
		// console format without colors to file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	if cfg.GraylogEnabled {
		gw, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("connecting to graylog: %w", err)
		}
		out.closers = append(out.closers, gw)
		writers = append(writers, gw)
	}

	out.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Str("app", name).Logger()

	out.Logger.Info().Str("loglevel", out.Logger.GetLevel().String()).Msg("Logging set up")
	return out, nil
}

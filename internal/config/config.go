// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrScratchDirRequired is returned when SCRATCH_DIR resolves to an empty path.
	ErrScratchDirRequired = errors.New("config: SCRATCH_DIR must not be empty")
	// ErrInvalidTimeout is returned when a configured timeout is not positive.
	ErrInvalidTimeout = errors.New("config: timeouts must be positive")
)

// Config holds all configuration for the transformation engine.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Transcoder settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Scratch storage settings
	ScratchDir string `env:"SCRATCH_DIR, default=/tmp/clipwright" json:"scratch_dir"`

	// Per-step timeouts. Transcoding gets its own budget distinct from
	// the network transfers.
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT, default=2m" json:"download_timeout"`
	ExecTimeout     time.Duration `env:"EXEC_TIMEOUT, default=10m" json:"exec_timeout"`
	UploadTimeout   time.Duration `env:"UPLOAD_TIMEOUT, default=2m" json:"upload_timeout"`

	// Optional YAML file overlaying the built-in color grade presets.
	PresetFile string `env:"PRESET_FILE" json:"preset_file,omitempty"`

	// Edit history database. Empty disables history recording.
	HistoryDBPath string `env:"HISTORY_DB_PATH" json:"history_db_path,omitempty"`

	// Optional S3 settings. When unset, uploads fail with a configuration
	// error and the engine is only usable for local processing.
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and sane.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ScratchDir) == "" {
		return ErrScratchDirRequired
	}
	if c.DownloadTimeout <= 0 || c.ExecTimeout <= 0 || c.UploadTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, ScratchDir: %s, DownloadTimeout: %s, ExecTimeout: %s, UploadTimeout: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.ScratchDir,
		c.DownloadTimeout,
		c.ExecTimeout,
		c.UploadTimeout,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

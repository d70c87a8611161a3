// Package bootstrap provides dependency initialization for the engine.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/clipwright/clipwright/internal/artifact"
	"github.com/clipwright/clipwright/internal/config"
	"github.com/clipwright/clipwright/internal/filtergraph"
	"github.com/clipwright/clipwright/internal/history"
	"github.com/clipwright/clipwright/internal/pipeline"
	"github.com/clipwright/clipwright/internal/scratch"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	History  history.Repository // nil when history is disabled
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	if closer, ok := d.History.(*history.SQLiteRepository); ok && closer != nil {
		return closer.Close()
	}
	return nil
}

// NewDependencies creates and initializes all dependencies for the
// application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	space, err := scratch.NewSpace(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("initialize scratch space: %w", err)
	}

	store, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	presets := filtergraph.NewPresetTable()
	if cfg.PresetFile != "" {
		if err := presets.LoadOverrides(cfg.PresetFile); err != nil {
			return nil, fmt.Errorf("load preset overrides: %w", err)
		}
		logger.Info("preset overrides loaded",
			slog.String("file", cfg.PresetFile),
		)
	}

	compiler := filtergraph.NewCompiler(logger, filtergraph.WithPresetTable(presets))
	runner := pipeline.NewRunner(cfg.FFmpegPath, cfg.FFprobePath)

	pipe := pipeline.New(store, space, compiler, runner, logger,
		pipeline.WithTimeouts(pipeline.Timeouts{
			Download: cfg.DownloadTimeout,
			Exec:     cfg.ExecTimeout,
			Upload:   cfg.UploadTimeout,
		}),
	)

	var hist history.Repository
	if cfg.HistoryDBPath != "" {
		repo, err := history.Open(cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("open history db: %w", err)
		}
		hist = repo
		logger.Info("edit history enabled",
			slog.String("db", cfg.HistoryDBPath),
		)
	}

	return &Dependencies{Pipeline: pipe, History: hist}, nil
}

// initStore creates the artifact store backend based on configuration.
func initStore(cfg *config.Config, logger *slog.Logger) (artifact.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := artifact.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		store, err := artifact.NewS3Store(s3Cfg, cfg.DownloadTimeout)
		if err != nil {
			return nil, fmt.Errorf("create S3 store: %w", err)
		}
		logger.Info("S3 artifact store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return store, nil
	}

	logger.Warn("S3 not configured, uploads will fail; local processing only")
	return artifact.NewLocalStore(cfg.DownloadTimeout), nil
}

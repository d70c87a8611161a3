package bootstrap

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipwright/clipwright/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            8080,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		ScratchDir:      filepath.Join(t.TempDir(), "scratch"),
		DownloadTimeout: time.Minute,
		ExecTimeout:     time.Minute,
		UploadTimeout:   time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependenciesLocalOnly(t *testing.T) {
	deps, err := NewDependencies(testConfig(t), discardLogger())
	require.NoError(t, err)
	defer func() { _ = deps.Close() }()

	assert.NotNil(t, deps.Pipeline)
	assert.Nil(t, deps.History, "history is disabled without a db path")
}

func TestNewDependenciesWithHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryDBPath = filepath.Join(t.TempDir(), "history.db")

	deps, err := NewDependencies(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = deps.Close() }()

	assert.NotNil(t, deps.History)
}

func TestNewDependenciesBadPresetFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PresetFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewDependencies(cfg, discardLogger())
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "insight-journey", cfg.DynamoDBTable)
	assert.Equal(t, "GSI1", cfg.GSI1IndexName)
	assert.Equal(t, 24*time.Hour, cfg.JWTLifetime)
	assert.Equal(t, 1.0, cfg.TurningPointThreshold)
	assert.Equal(t, 6, cfg.SnapshotWindow)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9999")
	t.Setenv("TABLE_NAME", "graph-test")
	t.Setenv("SNAPSHOT_WINDOW", "4")
	t.Setenv("JWT_LIFETIME", "2h")
	t.Setenv("ENABLE_METRICS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddress)
	assert.Equal(t, "graph-test", cfg.DynamoDBTable)
	assert.Equal(t, 4, cfg.SnapshotWindow)
	assert.Equal(t, 2*time.Hour, cfg.JWTLifetime)
	assert.False(t, cfg.EnableMetrics)
}

func TestValidateRequiresTable(t *testing.T) {
	cfg := &Config{SnapshotWindow: 6}
	assert.Error(t, cfg.Validate())
}

func TestValidateSnapshotWindow(t *testing.T) {
	cfg := &Config{DynamoDBTable: "t", SnapshotWindow: 0}
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionNeedsJWTSecret(t *testing.T) {
	cfg := &Config{DynamoDBTable: "t", SnapshotWindow: 6, Environment: "production"}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWatcherInertWithoutOverlay(t *testing.T) {
	base := &Config{DynamoDBTable: "t", SnapshotWindow: 6, LogLevel: "info"}

	w, err := NewWatcher(base, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, base, w.Current())
}

func TestWatcherMergesOverlay(t *testing.T) {
	base := &Config{
		DynamoDBTable:         "t",
		SnapshotWindow:        6,
		LogLevel:              "info",
		TurningPointThreshold: 1.0,
	}
	base.OverlayPath = writeOverlay(t, "log_level: debug\nturning_point_threshold: 2.5\n")

	w, err := NewWatcher(base, zap.NewNop())
	require.NoError(t, err)

	merged := w.Current()
	assert.Equal(t, "debug", merged.LogLevel)
	assert.Equal(t, 2.5, merged.TurningPointThreshold)
	assert.Equal(t, 6, merged.SnapshotWindow, "unset overlay fields keep the base value")
	assert.Equal(t, "t", merged.DynamoDBTable)
}

func TestWatcherRejectsInvalidOverlay(t *testing.T) {
	base := &Config{DynamoDBTable: "t", SnapshotWindow: 6, LogLevel: "info"}
	base.OverlayPath = writeOverlay(t, "snapshot_window: -3\n")

	w, err := NewWatcher(base, zap.NewNop())
	require.NoError(t, err)
	// Negative windows never validate; zero is "unset" and keeps the base.
	assert.Equal(t, 6, w.Current().SnapshotWindow)
}

func TestWatcherReloadInvokesCallbacks(t *testing.T) {
	base := &Config{DynamoDBTable: "t", SnapshotWindow: 6, LogLevel: "info"}
	path := writeOverlay(t, "log_level: warn\n")
	base.OverlayPath = path

	w, err := NewWatcher(base, zap.NewNop())
	require.NoError(t, err)

	var got *Config
	w.OnChange(func(c *Config) { got = c })

	require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o600))
	require.NoError(t, w.reload())

	require.NotNil(t, got)
	assert.Equal(t, "error", got.LogLevel)
	assert.Equal(t, "error", w.Current().LogLevel)
}

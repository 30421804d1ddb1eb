package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/whiteboard/config"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("secret")))
	t.Setenv("REDIS_ENDPOINT", "localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.False(t, cfg.DevMode)
	assert.Equal(t, "8080", cfg.HostPort)
	assert.Equal(t, "Whiteboard", cfg.DynamoDBTable)
	assert.Equal(t, "CanvasChangedQueue", cfg.CanvasChangedQueue)
	assert.Equal(t, []byte("secret"), cfg.JWTSecret)
	assert.Equal(t, 500*time.Millisecond, cfg.SnapshotFlushInterval)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.True(t, cfg.EnableCrossInstanceBus)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DEV_MODE", "true")
	t.Setenv("HOST_PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://board.example.com ,")
	t.Setenv("SNAPSHOT_FLUSH_MILLIS", "250")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.DevMode)
	assert.Equal(t, "9000", cfg.HostPort)
	assert.Equal(t, []string{"http://localhost:3000", "https://board.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.SnapshotFlushInterval)
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "whiteboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dynamodb_table: FromFile\nhost_port: \"7000\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HOST_PORT", "7001")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "FromFile", cfg.DynamoDBTable)
	assert.Equal(t, "7001", cfg.HostPort)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("REDIS_ENDPOINT", "localhost:6379")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidSecretEncoding(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "not base64!")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_BadFlushInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("SNAPSHOT_FLUSH_MILLIS", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

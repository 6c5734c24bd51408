package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "flight-overlays", cfg.Minio.Bucket)
	assert.Equal(t, 15*time.Second, cfg.Services.CalculationTimeout)
	assert.Empty(t, cfg.Services.CalculationURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9999"
logging:
  level: debug
services:
  calculation_url: http://calc.internal:8081
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://calc.internal:8081", cfg.Services.CalculationURL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9999\"\n"), 0o644))

	t.Setenv("PLANNER_SERVER__ADDR", ":7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("PLANNER_LOGGING__LEVEL", "loud")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

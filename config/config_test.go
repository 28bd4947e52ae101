package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gojorel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- Test Cases ---

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  format: json
telemetry:
  enabled: true
  prometheus_port: 9464
storage:
  driver: bolt
  path: /var/lib/gojorel/relations.db
  load_rate_limit: 50
  load_burst: 5
mapping:
  path: mapping.yaml
`)

	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "stdout", cfg.Logger.OutputFile)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 9464, cfg.Telemetry.PrometheusPort)
	assert.Equal(t, "gojorel", cfg.Telemetry.ServiceName)
	assert.Equal(t, "bolt", cfg.Storage.Driver)
	assert.Equal(t, time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 50.0, cfg.Storage.LoadRateLimit)
	assert.Equal(t, 5, cfg.Storage.LoadBurst)
	assert.Equal(t, "mapping.yaml", cfg.Mapping.Path)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigPath, "")

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, "storage:\n  timeout: 5s\n")
	t.Setenv(EnvConfigPath, path)

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 5*time.Second, cfg.Storage.Timeout)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bolt without path", content: "storage:\n  driver: bolt\n"},
		{name: "unknown driver", content: "storage:\n  driver: postgres\n"},
		{name: "negative rate", content: "storage:\n  load_rate_limit: -1\n"},
		{name: "malformed", content: "storage: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

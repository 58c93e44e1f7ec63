package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(25), cfg.Animation.DefaultSpeed)
	assert.Equal(t, animator.BackendTypeMemoized, cfg.BackendType())
	assert.Equal(t, time.Second, cfg.IdleTimeout())
	assert.Equal(t, time.Second, cfg.ProfilerInterval())
	assert.Len(t, cfg.AnimatorOptions(), 2)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[animation]
default_speed = 30
backend = "sorted"
debug_checks = true

[scene]
workers = 4

[server]
addr = ":9000"

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(30), cfg.Animation.DefaultSpeed)
	assert.Equal(t, animator.BackendTypeSorted, cfg.BackendType())
	assert.True(t, cfg.Animation.DebugChecks)
	assert.Equal(t, 4, cfg.Scene.Workers)
	assert.Equal(t, 256, cfg.Scene.QueueSize, "untouched keys keep defaults")
	assert.Equal(t, ":9000", cfg.Server.Addr)

	lc := cfg.LoggingConfig("posed")
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, "posed", lc.Component)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"backend":    "[animation]\nbackend = \"magic\"\n",
		"speed":      "[animation]\ndefault_speed = 0\n",
		"workers":    "[scene]\nworkers = -1\n",
		"stream fps": "[server]\nstream_fps = 500\n",
		"log level":  "[logging]\nlevel = \"verbose\"\n",
		"syntax":     "[animation\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

// Package config handles configuration loading and validation for the oxy-pose tools.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

// Config holds the complete tool configuration.
type Config struct {
	// Animation configures the pose evaluator.
	Animation AnimationConfig `toml:"animation"`

	// Scene configures batch evaluation of many instances.
	Scene SceneConfig `toml:"scene"`

	// Server configures the preview web service.
	Server ServerConfig `toml:"server"`

	// Profiler configures periodic throughput logging.
	Profiler ProfilerConfig `toml:"profiler"`

	// Logging configures log output.
	Logging LoggingConfig `toml:"logging"`
}

// AnimationConfig holds pose evaluator settings.
type AnimationConfig struct {
	// DefaultSpeed is the ticks per second used when an animation's speed is zero.
	DefaultSpeed float32 `toml:"default_speed"`

	// Backend is the joint traversal strategy: "memoized" or "sorted".
	Backend string `toml:"backend"`

	// DebugChecks validates every animation on every evaluation.
	DebugChecks bool `toml:"debug_checks"`
}

// SceneConfig holds worker pool settings for batch evaluation.
type SceneConfig struct {
	// Workers is the number of pool goroutines. Zero means NumCPU-1 (at least one).
	Workers int `toml:"workers"`

	// QueueSize is the task queue capacity of the pool.
	QueueSize int `toml:"queue_size"`

	// IdleTimeoutMs is how long an idle worker lingers before exiting.
	IdleTimeoutMs int `toml:"idle_timeout_ms"`
}

// ServerConfig holds preview web service settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`

	// StreamFPS is the default frame rate of websocket pose streams.
	StreamFPS int `toml:"stream_fps"`

	// MaxStreamFPS caps the frame rate a client may request.
	MaxStreamFPS int `toml:"max_stream_fps"`
}

// ProfilerConfig holds profiler settings.
type ProfilerConfig struct {
	// Enabled turns periodic throughput logging on.
	Enabled bool `toml:"enabled"`

	// IntervalSec is the logging interval in seconds.
	IntervalSec int `toml:"interval_sec"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Animation: AnimationConfig{
			DefaultSpeed: 25,
			Backend:      "memoized",
		},
		Scene: SceneConfig{
			QueueSize:     256,
			IdleTimeoutMs: 1000,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			StreamFPS:    30,
			MaxStreamFPS: 120,
		},
		Profiler: ProfilerConfig{
			IntervalSec: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks every setting for range and enum errors.
func (c *Config) Validate() error {
	if c.Animation.DefaultSpeed <= 0 {
		return errors.Errorf("animation.default_speed must be positive, got %g", c.Animation.DefaultSpeed)
	}
	if _, ok := animator.ParseBackendType(c.Animation.Backend); !ok {
		return errors.Errorf("animation.backend %q is not one of memoized, sorted", c.Animation.Backend)
	}
	if c.Scene.Workers < 0 {
		return errors.Errorf("scene.workers must not be negative, got %d", c.Scene.Workers)
	}
	if c.Scene.QueueSize <= 0 {
		return errors.Errorf("scene.queue_size must be positive, got %d", c.Scene.QueueSize)
	}
	if c.Scene.IdleTimeoutMs <= 0 {
		return errors.Errorf("scene.idle_timeout_ms must be positive, got %d", c.Scene.IdleTimeoutMs)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.StreamFPS <= 0 || c.Server.MaxStreamFPS < c.Server.StreamFPS {
		return errors.Errorf("server.stream_fps (%d) must be positive and at most server.max_stream_fps (%d)",
			c.Server.StreamFPS, c.Server.MaxStreamFPS)
	}
	if c.Profiler.IntervalSec <= 0 {
		return errors.Errorf("profiler.interval_sec must be positive, got %d", c.Profiler.IntervalSec)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return errors.Wrap(err, "logging.format")
	}
	return nil
}

// BackendType returns the configured animator backend.
func (c *Config) BackendType() animator.AnimatorBackendType {
	bt, _ := animator.ParseBackendType(c.Animation.Backend)
	return bt
}

// AnimatorOptions returns the animator options implied by the configuration.
func (c *Config) AnimatorOptions() []animator.AnimatorBuilderOption {
	return []animator.AnimatorBuilderOption{
		animator.WithDefaultSpeed(c.Animation.DefaultSpeed),
		animator.WithDebugChecks(c.Animation.DebugChecks),
	}
}

// IdleTimeout returns scene.idle_timeout_ms as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Scene.IdleTimeoutMs) * time.Millisecond
}

// ProfilerInterval returns profiler.interval_sec as a duration.
func (c *Config) ProfilerInterval() time.Duration {
	return time.Duration(c.Profiler.IntervalSec) * time.Second
}

// LoggingConfig converts the logging section into a logging.Config.
// It assumes Validate has passed.
func (c *Config) LoggingConfig(component string) logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	format, _ := logging.ParseFormat(c.Logging.Format)
	return logging.Config{Level: level, Format: format, Component: component}
}

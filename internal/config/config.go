package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the binaries need at startup.
type Config struct {
	Addr         string `yaml:"addr"`
	HostKeyPath  string `yaml:"host_key"`
	ScenesDir    string `yaml:"scenes_dir"`
	CatalogPath  string `yaml:"catalog"`
	SheetPath    string `yaml:"sheet"`
	DefaultScene string `yaml:"default_scene"`

	Log   LogConfig   `yaml:"log"`
	Redis RedisConfig `yaml:"redis"`
	Diag  DiagConfig  `yaml:"diag"`
	Sim   SimConfig   `yaml:"sim"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RedisConfig points at the scene/session store. An empty Addr disables it.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// DiagConfig configures the diagnostics websocket listener.
type DiagConfig struct {
	Addr string `yaml:"addr"`
}

// SimConfig tunes the simulation loop. Durations are milliseconds.
type SimConfig struct {
	StepMs          int     `yaml:"step_ms"`
	StallMs         int     `yaml:"stall_ms"`
	DiagIntervalMs  int     `yaml:"diag_interval_ms"`
	FrameRate       int     `yaml:"frame_rate"`
	ClockMultiplier float64 `yaml:"clock_multiplier"`
	Zoom            float64 `yaml:"zoom"`
}

// Step returns the fixed simulation step.
func (s SimConfig) Step() time.Duration { return time.Duration(s.StepMs) * time.Millisecond }

// Stall returns the elapsed time above which catch-up is clamped.
func (s SimConfig) Stall() time.Duration { return time.Duration(s.StallMs) * time.Millisecond }

// DiagInterval returns the diagnostics publishing cadence.
func (s SimConfig) DiagInterval() time.Duration {
	return time.Duration(s.DiagIntervalMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         ":2222",
		HostKeyPath:  "host_key",
		ScenesDir:    "assets/scenes",
		CatalogPath:  "assets/catalog.json",
		SheetPath:    "assets/sprites/sheet.png",
		DefaultScene: "town",
		Log:          LogConfig{Level: "info", Format: "text"},
		Redis:        RedisConfig{Prefix: "tileworld"},
		Diag:         DiagConfig{Addr: ":8081"},
		Sim: SimConfig{
			StepMs:          16,
			StallMs:         1000,
			DiagIntervalMs:  500,
			FrameRate:       30,
			ClockMultiplier: 60,
			Zoom:            1,
		},
	}
}

// Load reads an optional YAML file over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Sim.StepMs <= 0 {
		return fmt.Errorf("sim.step_ms must be positive, got %d", c.Sim.StepMs)
	}
	if c.Sim.StallMs < c.Sim.StepMs {
		return fmt.Errorf("sim.stall_ms (%d) must be at least sim.step_ms (%d)", c.Sim.StallMs, c.Sim.StepMs)
	}
	if c.Sim.FrameRate <= 0 {
		return fmt.Errorf("sim.frame_rate must be positive, got %d", c.Sim.FrameRate)
	}
	if c.Sim.Zoom <= 0 {
		return fmt.Errorf("sim.zoom must be positive, got %v", c.Sim.Zoom)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package config loads server settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Sim     SimConfig     `yaml:"sim" json:"sim"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	API     APIConfig     `yaml:"api" json:"api"`
	Weather WeatherConfig `yaml:"weather" json:"weather"`
	Keys    Keys          `yaml:"-" json:"-"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// SimConfig tunes the tick loop and the simulation clock.
type SimConfig struct {
	TickInterval    time.Duration `yaml:"tick_interval" json:"tick_interval"`
	Speed           float64       `yaml:"speed" json:"speed"`
	DayLength       int           `yaml:"day_length_ticks" json:"day_length_ticks"`
	EventCadence    int           `yaml:"event_cadence_days" json:"event_cadence_days"`
	ScenarioTimeout time.Duration `yaml:"scenario_timeout" json:"scenario_timeout"`
	Seed            uint64        `yaml:"seed" json:"seed"`
	Muted           bool          `yaml:"muted" json:"muted"`
}

// StorageConfig locates the save database and sets the autosave period.
type StorageConfig struct {
	Path     string        `yaml:"path" json:"path"`
	Slot     string        `yaml:"slot" json:"slot"`
	Autosave time.Duration `yaml:"autosave" json:"autosave"`
}

// APIConfig controls the HTTP listener and its rate limit.
type APIConfig struct {
	Port      int     `yaml:"port" json:"port"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"` // requests per second per client
	Burst     int     `yaml:"burst" json:"burst"`
}

// WeatherConfig sets where and how often live weather is fetched.
type WeatherConfig struct {
	Location string        `yaml:"location" json:"location"`
	Refresh  time.Duration `yaml:"refresh" json:"refresh"`
}

// Keys are secrets and only ever come from the environment.
type Keys struct {
	Admin     string
	Anthropic string
	Weather   string
	RandomOrg string
}

func (s *SimConfig) ApplyDefaults() {
	if s.TickInterval <= 0 {
		s.TickInterval = 200 * time.Millisecond
	}
	if s.Speed <= 0 {
		s.Speed = 1
	}
	if s.DayLength <= 0 {
		s.DayLength = 300
	}
	if s.EventCadence <= 0 {
		s.EventCadence = 4
	}
	if s.ScenarioTimeout <= 0 {
		s.ScenarioTimeout = 8 * time.Second
	}
}

func (s *StorageConfig) ApplyDefaults() {
	if s.Path == "" {
		s.Path = "data/frosthaven.db"
	}
	if s.Slot == "" {
		s.Slot = "frost_haven_save_v3"
	}
	if s.Autosave <= 0 {
		s.Autosave = 5 * time.Second
	}
}

func (a *APIConfig) ApplyDefaults() {
	if a.Port == 0 {
		a.Port = 8080
	}
	if a.RateLimit <= 0 {
		a.RateLimit = 10
	}
	if a.Burst <= 0 {
		a.Burst = 20
	}
}

func (w *WeatherConfig) ApplyDefaults() {
	if w.Location == "" {
		w.Location = "Yellowknife,CA"
	}
	if w.Refresh <= 0 {
		w.Refresh = 15 * time.Minute
	}
}

func (c *Config) ApplyDefaults() {
	c.Sim.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Weather.ApplyDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// Resolve loads path when it is set and exists, falls back to defaults
// otherwise, then layers the environment on top.
func Resolve(path string) (*Config, error) {
	c := Default()
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			c = loaded
		case os.IsNotExist(err):
			slog.Warn("config file not found, using defaults", "path", path)
		default:
			return nil, err
		}
	}
	c.ApplyEnv()
	return c, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides settings from FROSTHAVEN_* variables and reads the
// API keys.
func (c *Config) ApplyEnv() {
	if v := getEnvDuration("FROSTHAVEN_TICK_INTERVAL"); v > 0 {
		c.Sim.TickInterval = v
	}
	if v := getEnvFloat("FROSTHAVEN_SPEED"); v > 0 {
		c.Sim.Speed = v
	}
	if v := getEnvInt("FROSTHAVEN_DAY_LENGTH"); v > 0 {
		c.Sim.DayLength = v
	}
	if v := getEnvInt("FROSTHAVEN_EVENT_CADENCE"); v > 0 {
		c.Sim.EventCadence = v
	}
	if v := getEnvDuration("FROSTHAVEN_SCENARIO_TIMEOUT"); v > 0 {
		c.Sim.ScenarioTimeout = v
	}
	if v, err := strconv.ParseUint(os.Getenv("FROSTHAVEN_SEED"), 10, 64); err == nil {
		c.Sim.Seed = v
	}
	if v, err := strconv.ParseBool(os.Getenv("FROSTHAVEN_MUTED")); err == nil {
		c.Sim.Muted = v
	}
	if v := os.Getenv("FROSTHAVEN_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("FROSTHAVEN_SLOT"); v != "" {
		c.Storage.Slot = v
	}
	if v := getEnvDuration("FROSTHAVEN_AUTOSAVE"); v > 0 {
		c.Storage.Autosave = v
	}
	if v := getEnvInt("FROSTHAVEN_PORT"); v > 0 {
		c.API.Port = v
	}
	if v := os.Getenv("FROSTHAVEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FROSTHAVEN_WEATHER_LOCATION"); v != "" {
		c.Weather.Location = v
	}

	c.Keys.Admin = os.Getenv("FROSTHAVEN_ADMIN_KEY")
	c.Keys.Anthropic = os.Getenv("ANTHROPIC_API_KEY")
	c.Keys.Weather = os.Getenv("OPENWEATHER_API_KEY")
	c.Keys.RandomOrg = os.Getenv("RANDOM_ORG_API_KEY")
}

func getEnvInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func getEnvFloat(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func getEnvDuration(key string) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

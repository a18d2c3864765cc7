package config

import (
	"log/slog"
	"strings"
)

// ObservabilityConfig controls logging and metrics exposure.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is json (default) or text.
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// MetricsEnabled exposes Prometheus metrics at /metrics.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Sanitize normalises the log level and format, falling back to info and json.
func (c *ObservabilityConfig) Sanitize() {
	if c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat)); c.LogFormat != "text" {
		c.LogFormat = "json"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
}

// SlogLevel converts LogLevel for slog handlers.
func (c ObservabilityConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

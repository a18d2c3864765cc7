// Package config declares the environment-driven configuration of the backoffice
// binaries. Values are parsed with github.com/caarlos0/env, then Sanitize clamps
// them into working ranges and Validate reports what cannot work at all.
package config

import (
	"errors"
	"strings"
)

// AppConfig composes the per-concern configuration in auth.go, database.go,
// http.go and observability.go.
type AppConfig struct {
	// Env names the deployment; "development" and "dev" turn on IsDev.
	Env string `env:"APP_ENV" envDefault:"production"`
	// IsDev relaxes production-only checks such as https-only URLs.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth          AuthConfig
	Postgres      DBConfig    `envPrefix:"DB_"`
	Redis         RedisConfig `envPrefix:"REDIS_"`
	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "development" || c.Env == "dev" {
		c.IsDev = true
	}
	c.Auth.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports configuration that cannot work. Call it after Sanitize.
func (c *AppConfig) Validate() error {
	return errors.Join(
		c.Auth.Validate(c.IsDev),
		c.HTTP.Validate(),
	)
}

package config

import "strings"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"backoffice"`
	Password string `env:"PASSWORD"                envDefault:"backoffice"`
	Name     string `env:"NAME"                    envDefault:"backoffice"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for state tokens and sessions.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	KeyPrefix          string   `env:"KEY_PREFIX"           envDefault:"backoffice:"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// Sanitize drops blank node entries and picks one topology.
func (c *RedisConfig) Sanitize() {
	c.SentinelNodes = compact(c.SentinelNodes)
	c.ClusterNodes = compact(c.ClusterNodes)
	if c.UseCluster && len(c.ClusterNodes) == 0 {
		c.UseCluster = false
	}
	if c.UseCluster {
		// Cluster mode has a single database.
		c.UseSentinel = false
		c.DB = 0
	}
	if c.UseSentinel && len(c.SentinelNodes) == 0 {
		c.UseSentinel = false
	}
	c.DB = max(c.DB, 0)
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

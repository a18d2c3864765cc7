package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/harborline/backoffice/config"
)

// InitLogger builds the process logger from the observability settings, writes to w
// (stdout when nil) and installs it as the slog default.
func InitLogger(w io.Writer, cfg config.ObservabilityConfig) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler).With("service", "backoffice")
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads the optional dotenv files (".env" when none are named) into the
// process environment, then parses and sanitizes AppConfig. Variables already set in
// the environment win over the files.
func LoadConfig(envFiles ...string) (config.AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.AppConfig{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

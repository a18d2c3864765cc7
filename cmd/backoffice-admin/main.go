package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = time.Minute
)

func main() {
	// Command output owns stdout; logs go to stderr.
	logger := bootstrap.InitLogger(os.Stderr, config.ObservabilityConfig{LogLevel: "info", LogFormat: "text"})

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"provision-role": {
			name:        "provision-role",
			description: "Assign an application role at the identity provider and revoke the user's sessions",
			run:         runProvisionRole,
		},
		"revoke-sessions": {
			name:        "revoke-sessions",
			description: "Revoke every active session of a user",
			run:         runRevokeSessions,
		},
		"list-sessions": {
			name:        "list-sessions",
			description: "List the active sessions of a user",
			run:         runListSessions,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: backoffice-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := writef(w, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harborline/backoffice/internal/bootstrap"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/service"
	"github.com/harborline/backoffice/internal/util"
)

func runProvisionRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseProvisionFlags(args)
	if err != nil {
		return err
	}
	return withAdmin(cmdCtx, func(ctx context.Context, admin *service.AdminService) error {
		res, provErr := admin.ProvisionRole(ctx, service.OperatorActor(opts.Actor), service.ProvisionRoleInput{
			Email:        opts.Email,
			Role:         opts.Role,
			Organization: opts.Organization,
		})
		if provErr != nil {
			return fmt.Errorf("provision role: %w", provErr)
		}
		return writef(cmdCtx.Out, "Assigned role %s to %s; revoked %d session(s)\n",
			res.Role, opts.Email, res.RevokedSessions)
	})
}

func runRevokeSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserFlags("revoke-sessions", args)
	if err != nil {
		return err
	}
	return withAdmin(cmdCtx, func(ctx context.Context, admin *service.AdminService) error {
		n, revokeErr := admin.RevokeSessions(ctx, service.OperatorActor(opts.Actor), opts.UserID)
		if revokeErr != nil {
			return fmt.Errorf("revoke sessions: %w", revokeErr)
		}
		return writef(cmdCtx.Out, "Revoked %d session(s) for user %s\n", n, opts.UserID)
	})
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseUserFlags("list-sessions", args)
	if err != nil {
		return err
	}
	return withAdmin(cmdCtx, func(ctx context.Context, admin *service.AdminService) error {
		sessions, listErr := admin.ListSessions(ctx, service.OperatorActor(opts.Actor), opts.UserID)
		if listErr != nil {
			return fmt.Errorf("list sessions: %w", listErr)
		}
		return printSessions(cmdCtx.Out, time.Now(), sessions)
	})
}

// withAdmin connects infrastructure, builds the admin service and runs fn.
func withAdmin(cmdCtx *commandContext, fn func(context.Context, *service.AdminService) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, redisClient, err := connectInfra(ctx, cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, redisClient); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return fn(ctx, services.Admin)
}

// printSessions renders sessions as a table. Provider tokens are never printed.
func printSessions(w io.Writer, now time.Time, sessions []domainauth.Session) error {
	if len(sessions) == 0 {
		return writeln(w, "(no active sessions)")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "SESSION\tEMAIL\tROLE\tORGANIZATION\tCREATED\tIDLE EXPIRY\n"); err != nil {
		return err
	}
	for _, s := range sessions {
		org := s.Organization
		if org == "" {
			org = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			util.TokenPrefix(s.ID), s.Email, s.Role, org,
			s.CreatedAt.UTC().Format(time.RFC3339), util.FormatRemaining(now, s.ExpiresAt),
		); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush session table: %w", err)
	}
	return writef(w, "\nTotal sessions: %d\n", len(sessions))
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"time"
)

type migrateOptions struct {
	Timeout time.Duration
}

type provisionOptions struct {
	Email        string
	Role         string
	Organization string
	Actor        string
}

type userOptions struct {
	UserID string
	Actor  string
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be positive")
	}
	return opts, nil
}

func parseProvisionFlags(args []string) (provisionOptions, error) {
	fs := flag.NewFlagSet("provision-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts provisionOptions
	fs.StringVar(&opts.Email, "email", "", "Email of the user to provision (required)")
	fs.StringVar(&opts.Role, "role", "", "Role to assign: admin, office or client (required)")
	fs.StringVar(&opts.Organization, "org", "", "Organization for the client role")
	fs.StringVar(&opts.Actor, "actor", currentUsername(), "Operator name recorded in the audit log")

	if err := fs.Parse(args); err != nil {
		return provisionOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	opts.Role = strings.ToLower(strings.TrimSpace(opts.Role))
	opts.Organization = strings.TrimSpace(opts.Organization)
	opts.Actor = strings.TrimSpace(opts.Actor)

	switch {
	case opts.Email == "":
		return provisionOptions{}, errors.New("--email is required")
	case opts.Role == "":
		return provisionOptions{}, errors.New("--role is required")
	case opts.Actor == "":
		return provisionOptions{}, errors.New("--actor is required")
	}
	return opts, nil
}

func parseUserFlags(name string, args []string) (userOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts userOptions
	fs.StringVar(&opts.UserID, "user-id", "", "Provider subject of the user (required)")
	fs.StringVar(&opts.Actor, "actor", currentUsername(), "Operator name recorded in the audit log")

	if err := fs.Parse(args); err != nil {
		return userOptions{}, err
	}
	opts.UserID = strings.TrimSpace(opts.UserID)
	opts.Actor = strings.TrimSpace(opts.Actor)
	if opts.UserID == "" {
		return userOptions{}, errors.New("--user-id is required")
	}
	if opts.Actor == "" {
		return userOptions{}, errors.New("--actor is required")
	}
	return opts, nil
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}

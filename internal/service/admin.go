package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/harborline/backoffice/internal/data"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// ErrInvalidInput marks a request rejected for its content rather than its caller.
var ErrInvalidInput = errors.New("invalid input")

// ErrDirectoryFailed wraps failures of the identity provider's role directory.
var ErrDirectoryFailed = errors.New("role directory failed")

// Actor identifies who performs an administrative action: a signed-in session, or a named
// operator running the admin CLI with direct infrastructure access.
type Actor struct {
	Session  *domainauth.Session
	Operator string
}

// SessionActor wraps a signed-in session.
func SessionActor(sess *domainauth.Session) Actor { return Actor{Session: sess} }

// OperatorActor names a CLI operator.
func OperatorActor(name string) Actor { return Actor{Operator: strings.TrimSpace(name)} }

// Name returns the identifier recorded in audit events.
func (a Actor) Name() string {
	if a.Session != nil {
		return a.Session.Email
	}
	if a.Operator != "" {
		return "operator:" + a.Operator
	}
	return ""
}

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	Directory ports.RoleDirectory
	Users     ports.UserRepository
	Sessions  ports.SessionStore
	Audit     ports.AuditSink
	Guard     *Guard
	Logger    *slog.Logger     // Optional: structured logger
	Now       func() time.Time // Optional: clock override for tests
}

// AdminService provisions roles and manages sessions. Every action is audited.
type AdminService struct {
	directory ports.RoleDirectory
	users     ports.UserRepository
	sessions  ports.SessionStore
	audit     ports.AuditSink
	guard     *Guard
	logger    *slog.Logger
	now       func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(opts AdminServiceOptions) (*AdminService, error) {
	switch {
	case opts.Directory == nil:
		return nil, errors.New("RoleDirectory is required")
	case opts.Users == nil:
		return nil, errors.New("UserRepository is required")
	case opts.Sessions == nil:
		return nil, errors.New("SessionStore is required")
	case opts.Audit == nil:
		return nil, errors.New("AuditSink is required")
	case opts.Guard == nil:
		return nil, errors.New("Guard is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AdminService{
		directory: opts.Directory,
		users:     opts.Users,
		sessions:  opts.Sessions,
		audit:     opts.Audit,
		guard:     opts.Guard,
		logger:    logger.With("component", "admin"),
		now:       now,
	}, nil
}

// ProvisionRoleInput is a role assignment request.
type ProvisionRoleInput struct {
	Email        string
	Role         string
	Organization string
}

// ProvisionRoleResult reports what provisioning did.
type ProvisionRoleResult struct {
	Role            domainauth.Role
	RevokedSessions int
}

// ProvisionRole writes the role claim at the identity provider and revokes the target's
// sessions so the new role applies from the next login.
func (s *AdminService) ProvisionRole(ctx context.Context, actor Actor, in ProvisionRoleInput) (*ProvisionRoleResult, error) {
	if err := s.authorize(ctx, actor, OpRolesProvision); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, data.ErrEmailRequired
	}
	role, err := domainauth.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	org := strings.TrimSpace(in.Organization)
	if role == domainauth.RoleClient && org == "" {
		return nil, fmt.Errorf("%w: client role requires an organization", ErrInvalidInput)
	}
	if role != domainauth.RoleClient {
		org = ""
	}

	if assignErr := s.directory.AssignRole(ctx, model.RoleAssignment{
		Email:        email,
		Role:         string(role),
		Organization: org,
		Actor:        actor.Name(),
	}); assignErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryFailed, assignErr)
	}

	revoked, err := s.revokeByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, model.AuditEvent{
		Action: model.AuditRoleProvisioned,
		Actor:  actor.Name(),
		Target: email,
		Details: map[string]string{
			"role":             string(role),
			"organization":     org,
			"revoked_sessions": strconv.Itoa(revoked),
		},
		At: s.now().UTC(),
	})
	return &ProvisionRoleResult{Role: role, RevokedSessions: revoked}, nil
}

func (s *AdminService) revokeByEmail(ctx context.Context, email string) (int, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, data.ErrUserNotFound) {
		// Never signed in, so there is nothing to revoke.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	n, err := s.sessions.DeleteByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return n, nil
}

// RevokeSessions deletes every session of userID and returns how many were removed.
func (s *AdminService) RevokeSessions(ctx context.Context, actor Actor, userID string) (int, error) {
	if err := s.authorize(ctx, actor, OpSessionsRevoke); err != nil {
		return 0, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	s.audit.Record(ctx, model.AuditEvent{
		Action:  model.AuditSessionsRevoked,
		Actor:   actor.Name(),
		Target:  userID,
		Details: map[string]string{"revoked_sessions": strconv.Itoa(n)},
		At:      s.now().UTC(),
	})
	return n, nil
}

// ListSessions returns the live sessions of userID.
func (s *AdminService) ListSessions(ctx context.Context, actor Actor, userID string) ([]domainauth.Session, error) {
	if err := s.authorize(ctx, actor, OpSessionsList); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	out, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (s *AdminService) authorize(ctx context.Context, actor Actor, op Operation) error {
	if actor.Session != nil {
		return s.guard.Authorize(ctx, actor.Session, op)
	}
	if actor.Operator == "" {
		return s.guard.Authorize(ctx, nil, op)
	}
	s.logger.InfoContext(ctx, "operator action", "operator", actor.Operator, "operation", op.Name)
	return nil
}

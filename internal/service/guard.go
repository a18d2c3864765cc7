package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/observability/metrics"
)

// Operation is a named protected action and the roles allowed to perform it.
type Operation struct {
	Name  string
	Roles []domainauth.Role
}

// NewOperation builds an Operation.
func NewOperation(name string, roles ...domainauth.Role) Operation {
	return Operation{Name: name, Roles: roles}
}

// Validate reports whether op is usable: a name and at least one valid role.
func (op Operation) Validate() error {
	if strings.TrimSpace(op.Name) == "" {
		return errors.New("operation name is required")
	}
	if len(op.Roles) == 0 {
		return fmt.Errorf("operation %q allows no roles", op.Name)
	}
	for _, r := range op.Roles {
		if !r.Valid() {
			return fmt.Errorf("operation %q lists invalid role %q", op.Name, r)
		}
	}
	return nil
}

// Allows reports whether role may perform op.
func (op Operation) Allows(role domainauth.Role) bool {
	return role.Valid() && slices.Contains(op.Roles, role)
}

// Operations guarded by the back-office.
var (
	OpShipmentsList   = NewOperation("shipments.list", domainauth.RoleAdmin, domainauth.RoleOffice, domainauth.RoleClient)
	OpShipmentsGet    = NewOperation("shipments.get", domainauth.RoleAdmin, domainauth.RoleOffice, domainauth.RoleClient)
	OpShipmentsDelete = NewOperation("shipments.delete", domainauth.RoleAdmin)
	OpRolesProvision  = NewOperation("roles.provision", domainauth.RoleAdmin)
	OpSessionsRevoke  = NewOperation("sessions.revoke", domainauth.RoleAdmin)
	OpSessionsList    = NewOperation("sessions.list", domainauth.RoleAdmin)
)

// Authorize is the pure role check: nil session is unauthorized, a role outside op.Roles is forbidden.
func Authorize(sess *domainauth.Session, op Operation) error {
	if sess == nil {
		return domainauth.ErrUnauthorized
	}
	if !op.Allows(sess.Role) {
		return fmt.Errorf("%w: role %q may not %s", domainauth.ErrForbidden, sess.Role, op.Name)
	}
	return nil
}

// GuardOptions groups dependencies for Guard.
type GuardOptions struct {
	Logger  *slog.Logger     // Optional: structured logger
	Metrics *metrics.Metrics // Optional
}

// Guard enforces operation-level authorization and records denials.
type Guard struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewGuard constructs a Guard.
func NewGuard(opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger.With("component", "guard"), metrics: opts.Metrics}
}

// Authorize checks sess against op. The decision depends only on the session role and op,
// so repeated calls give the same answer.
func (g *Guard) Authorize(ctx context.Context, sess *domainauth.Session, op Operation) error {
	err := Authorize(sess, op)
	if err == nil {
		return nil
	}
	reason := domainauth.DenialReason(err)
	attrs := []any{"operation", op.Name, "reason", reason}
	if sess != nil {
		attrs = append(attrs, "user_id", sess.UserID, "role", string(sess.Role))
	}
	g.logger.WarnContext(ctx, "operation denied", attrs...)
	g.metrics.GuardDenied(op.Name, reason)
	return err
}

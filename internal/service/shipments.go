package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborline/backoffice/internal/data"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// ShipmentServiceOptions groups dependencies for ShipmentService.
type ShipmentServiceOptions struct {
	Repo   ports.ShipmentRepository
	Guard  *Guard
	Audit  ports.AuditSink  // Optional: records deletions
	Logger *slog.Logger     // Optional: structured logger
	Now    func() time.Time // Optional: clock override for tests
}

// ShipmentService serves shipment history to authorized sessions.
// Client sessions only ever see their own organization.
type ShipmentService struct {
	repo   ports.ShipmentRepository
	guard  *Guard
	audit  ports.AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewShipmentService constructs a ShipmentService.
func NewShipmentService(opts ShipmentServiceOptions) (*ShipmentService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ShipmentRepository is required")
	}
	if opts.Guard == nil {
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
	return &ShipmentService{
		repo:   opts.Repo,
		guard:  opts.Guard,
		audit:  opts.Audit,
		logger: logger.With("component", "shipments"),
		now:    now,
	}, nil
}

// List returns shipments visible to sess. For Client sessions the organization filter is
// replaced by the session organization whatever the caller asked for.
func (s *ShipmentService) List(
	ctx context.Context,
	sess *domainauth.Session,
	filter model.ShipmentFilter,
) ([]model.Shipment, error) {
	if err := s.guard.Authorize(ctx, sess, OpShipmentsList); err != nil {
		return nil, err
	}
	filter = scopeFilter(sess, filter)
	out, err := s.repo.List(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return out, nil
}

// Get returns one shipment. A shipment of another organization is reported to a Client
// as not found.
func (s *ShipmentService) Get(ctx context.Context, sess *domainauth.Session, id string) (model.Shipment, error) {
	if err := s.guard.Authorize(ctx, sess, OpShipmentsGet); err != nil {
		return model.Shipment{}, err
	}
	sh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Shipment{}, fmt.Errorf("get shipment: %w", err)
	}
	if sess.Role == domainauth.RoleClient && sh.Organization != sess.Organization {
		s.logger.WarnContext(ctx, "cross-organization shipment access refused",
			"user_id", sess.UserID,
			"organization", sess.Organization,
			"shipment_id", id)
		return model.Shipment{}, data.ErrShipmentNotFound
	}
	return sh, nil
}

// Delete removes a shipment history row.
func (s *ShipmentService) Delete(ctx context.Context, sess *domainauth.Session, id string) error {
	if err := s.guard.Authorize(ctx, sess, OpShipmentsDelete); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	if !deleted {
		return data.ErrShipmentNotFound
	}
	if s.audit != nil {
		s.audit.Record(ctx, model.AuditEvent{
			Action: model.AuditShipmentDeleted,
			Actor:  sess.Email,
			Target: id,
			At:     s.now().UTC(),
		})
	}
	return nil
}

func scopeFilter(sess *domainauth.Session, f model.ShipmentFilter) model.ShipmentFilter {
	if sess.Role == domainauth.RoleClient {
		f.Organization = sess.Organization
	}
	return f
}

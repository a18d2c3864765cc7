// Package audit provides AuditSink adapters. Durable audit storage lives outside this service.
package audit

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// SlogSink writes audit events as structured log lines for collection by the log pipeline.
type SlogSink struct {
	logger *slog.Logger
}

var _ ports.AuditSink = (*SlogSink)(nil)

// NewSlogSink creates a sink; a nil logger means slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "audit")}
}

// Record logs ev at INFO.
func (s *SlogSink) Record(ctx context.Context, ev model.AuditEvent) {
	details := make([]any, 0, len(ev.Details))
	for _, k := range slices.Sorted(maps.Keys(ev.Details)) {
		details = append(details, slog.String(k, ev.Details[k]))
	}
	s.logger.InfoContext(ctx, "audit event",
		"audit_action", string(ev.Action),
		"actor", ev.Actor,
		"target", ev.Target,
		"at", ev.At,
		slog.Group("details", details...))
}

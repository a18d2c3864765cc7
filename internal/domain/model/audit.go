//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// AuditAction names an administrative action that must leave a trail.
type AuditAction string

const (
	AuditRoleProvisioned AuditAction = "role.provisioned"
	AuditSessionsRevoked AuditAction = "sessions.revoked"
	AuditShipmentDeleted AuditAction = "shipment.deleted"
)

// AuditEvent records who did what to whom.
type AuditEvent struct {
	Action  AuditAction
	Actor   string
	Target  string
	Details map[string]string
	At      time.Time
}

// RoleAssignment is an out-of-band request to set a user's role at the identity provider.
type RoleAssignment struct {
	Email        string
	Role         string
	Organization string
	Actor        string
}

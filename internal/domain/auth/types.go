package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// The set is closed: there is no zero-value default, and Role("") is invalid.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOffice Role = "office"
	RoleClient Role = "client"
)

// AllRoles lists every valid role.
func AllRoles() []Role { return []Role{RoleAdmin, RoleOffice, RoleClient} }

// ParseRole maps a role claim value onto the closed Role set.
// Matching is case-insensitive so "Office" and "office" are the same role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOffice:
		return RoleOffice, nil
	case RoleClient:
		return RoleClient, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOffice || r == RoleClient
}

// Unrestricted reports whether r may use every operation of the application.
func (r Role) Unrestricted() bool {
	return r == RoleAdmin || r == RoleOffice
}

// RoleClaim is the application-scoped role asserted by the identity provider.
type RoleClaim struct {
	Name         string
	Permissions  []string
	Organization string
}

// IdentityClaims are the trusted claims of a verified identity token.
// They only exist inside callback processing.
type IdentityClaims struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	Audience  []string
	Role      RoleClaim
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the claims carry an application role name.
func (c IdentityClaims) HasRole() bool { return strings.TrimSpace(c.Role.Name) != "" }

// ProviderTokens are opaque tokens from the identity provider.
// They are kept for later provider calls and never used for local authorization.
type ProviderTokens struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// LogValue keeps token material out of structured logs.
func (ProviderTokens) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// PermissionSet is an immutable, sorted set of permission names.
type PermissionSet struct {
	items []string
}

// NewPermissionSet builds a set from raw permission names, dropping blanks and duplicates.
func NewPermissionSet(perms []string) PermissionSet {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return PermissionSet{items: slices.Compact(out)}
}

// Has reports whether perm is in the set.
func (p PermissionSet) Has(perm string) bool {
	_, ok := slices.BinarySearch(p.items, perm)
	return ok
}

// Slice returns a copy of the permissions.
func (p PermissionSet) Slice() []string { return slices.Clone(p.items) }

// Len returns the number of permissions.
func (p PermissionSet) Len() int { return len(p.items) }

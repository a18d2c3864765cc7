package oidc

import (
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/ports"
	jmespath "github.com/jmespath-community/go-jmespath"
)

// Default claim paths inside the identity token or userinfo document.
const (
	DefaultRoleClaimPath         = "app_access.role"
	DefaultPermissionsClaimPath  = "app_access.permissions"
	DefaultOrganizationClaimPath = "app_access.organization"
)

// ClaimPaths are the JMESPath expressions locating the application role claim.
type ClaimPaths struct {
	Role         string
	Permissions  string
	Organization string
}

func (p ClaimPaths) withDefaults() ClaimPaths {
	if strings.TrimSpace(p.Role) == "" {
		p.Role = DefaultRoleClaimPath
	}
	if strings.TrimSpace(p.Permissions) == "" {
		p.Permissions = DefaultPermissionsClaimPath
	}
	if strings.TrimSpace(p.Organization) == "" {
		p.Organization = DefaultOrganizationClaimPath
	}
	return p
}

// ClaimsExtractor reads the application role claim with JMESPath expressions.
type ClaimsExtractor struct {
	paths ClaimPaths
}

var _ ports.ClaimsExtractor = (*ClaimsExtractor)(nil)

// NewClaimsExtractor validates the expressions in paths; blank paths take the defaults.
func NewClaimsExtractor(paths ClaimPaths) (*ClaimsExtractor, error) {
	paths = paths.withDefaults()
	for name, expr := range map[string]string{
		"role":         paths.Role,
		"permissions":  paths.Permissions,
		"organization": paths.Organization,
	} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid %s claim expression %q: %w", name, expr, err)
		}
	}
	return &ClaimsExtractor{paths: paths}, nil
}

// Paths returns the effective expressions.
func (e *ClaimsExtractor) Paths() ClaimPaths { return e.paths }

// RoleClaim evaluates the expressions against claims. A missing role yields an empty Name
// and no error; deciding what that means is the binder's job.
func (e *ClaimsExtractor) RoleClaim(claims map[string]any) (domainauth.RoleClaim, error) {
	if claims == nil {
		return domainauth.RoleClaim{}, nil
	}
	roleVal, err := jmespath.Search(e.paths.Role, claims)
	if err != nil {
		return domainauth.RoleClaim{}, fmt.Errorf("evaluate role claim: %w", err)
	}
	permVal, err := jmespath.Search(e.paths.Permissions, claims)
	if err != nil {
		return domainauth.RoleClaim{}, fmt.Errorf("evaluate permissions claim: %w", err)
	}
	orgVal, err := jmespath.Search(e.paths.Organization, claims)
	if err != nil {
		return domainauth.RoleClaim{}, fmt.Errorf("evaluate organization claim: %w", err)
	}

	org, _ := orgVal.(string)
	return domainauth.RoleClaim{
		Name:         roleName(roleVal),
		Permissions:  stringList(permVal),
		Organization: strings.TrimSpace(org),
	}, nil
}

// roleName picks the role out of a claim that may be a string or a list.
// Lists resolve to their least privileged recognized role so that an ambiguous
// assertion never widens access.
func roleName(v any) string {
	values := stringList(v)
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		return values[0]
	}
	best, bestRank := "", -1
	for _, raw := range values {
		r, err := domainauth.ParseRole(raw)
		if err != nil {
			continue
		}
		if rank := privilegeRank(r); bestRank < 0 || rank < bestRank {
			best, bestRank = raw, rank
		}
	}
	if best == "" {
		return values[0]
	}
	return best
}

func privilegeRank(r domainauth.Role) int {
	switch r {
	case domainauth.RoleClient:
		return 0
	case domainauth.RoleOffice:
		return 1
	default:
		return 2
	}
}

// stringList accepts a string (space or comma separated for lists) or a JSON array of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		fields := strings.FieldsFunc(t, func(r rune) bool { return r == ' ' || r == ',' })
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}

var errNoExtractor = errors.New("claims extractor is required")

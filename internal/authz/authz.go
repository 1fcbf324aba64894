// Package authz is the authorization decision point: given a resolved
// principal and a required capability it decides allow or deny, as a pure
// function of the principal's materialized permission-code set and role codes.
// It never inspects role names for special cases; the super administrator is
// allowed everything only because bootstrap grants that role the full
// permission catalog.
package authz

import (
	"errors"

	"github.com/suteetoe/learnhub/internal/principal"
)

var (
	// ErrUnauthenticated means no principal at all: missing, invalid or
	// expired credential. Maps to 401.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means a valid principal lacks the required capability.
	// Maps to 403, distinct from ErrUnauthenticated.
	ErrForbidden = errors.New("insufficient permissions")
)

// Capability is what a handler requires before it may execute: either a
// single permission code, or one of a set of acceptable role codes. Exactly
// one of the two fields is set.
type Capability struct {
	Permission string
	Roles      []string
}

// RequirePermission builds a permission-code capability.
func RequirePermission(code string) Capability {
	return Capability{Permission: code}
}

// RequireAnyRole builds a role-code capability.
func RequireAnyRole(codes ...string) Capability {
	return Capability{Roles: codes}
}

// Authorize decides whether the principal may exercise the capability.
// Returns nil on allow, ErrForbidden on deny, ErrUnauthenticated when there
// is no principal.
func Authorize(p *principal.Principal, cap Capability) error {
	if p == nil {
		return ErrUnauthenticated
	}

	if cap.Permission != "" {
		if p.HasPermission(cap.Permission) {
			return nil
		}
		return ErrForbidden
	}

	for _, role := range cap.Roles {
		if p.HasRole(role) {
			return nil
		}
	}
	if len(cap.Roles) == 0 {
		// No capability declared: an authenticated principal suffices.
		return nil
	}
	return ErrForbidden
}

package principal

// Principal is the resolved identity and authorization context for one
// request. It is built once per authenticated request from a validated access
// token plus the authoritative role/permission store, lives in the request
// context only, and is never persisted.
type Principal struct {
	UserID   uint
	Email    string
	TenantID *uint // nil only for the system-wide super administrator
	Roles    []string

	// Permissions is the materialized set of permission codes reachable from
	// the principal's roles, computed once at resolution time.
	Permissions map[string]struct{}

	// Bypass marks a principal allowed to cross tenant boundaries. It is
	// derived from holding the tenants:bypass permission, never from a role
	// name.
	Bypass bool
}

// HasPermission reports whether the principal's materialized permission set
// contains the given code.
func (p *Principal) HasPermission(code string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Permissions[code]
	return ok
}

// HasRole reports whether the principal holds the given role code.
func (p *Principal) HasRole(code string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == code {
			return true
		}
	}
	return false
}

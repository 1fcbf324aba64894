package principal

import (
	"context"

	"github.com/labstack/echo/v4"
)

// The tenant scope rides on the request's context.Context, so every request
// gets its own copy and it disappears with the request on every exit path.
// It must never be stored in a package-level variable: concurrent requests
// share the process but must never observe each other's tenant id.

type contextKey string

const principalKey contextKey = "principal"

// NewContext returns a context carrying the resolved principal.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext retrieves the principal from the context, or nil when the
// request is unauthenticated.
func FromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// TenantIDFromContext returns the current tenant id, or nil when no principal
// is bound or the principal is the super administrator.
func TenantIDFromContext(ctx context.Context) *uint {
	p := FromContext(ctx)
	if p == nil {
		return nil
	}
	return p.TenantID
}

// BypassFromContext reports whether cross-tenant bypass is active on this
// request.
func BypassFromContext(ctx context.Context) bool {
	p := FromContext(ctx)
	return p != nil && p.Bypass
}

// CurrentUser retrieves the resolved principal from the Echo context.
// Handlers use this instead of re-deriving identity from the token.
func CurrentUser(c echo.Context) *Principal {
	return FromContext(c.Request().Context())
}

// CurrentTenantID retrieves the resolved tenant id from the Echo context.
func CurrentTenantID(c echo.Context) *uint {
	return TenantIDFromContext(c.Request().Context())
}

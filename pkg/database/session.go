package database

import (
	"context"
	"errors"
	"strconv"

	"github.com/suteetoe/learnhub/internal/principal"
	"gorm.io/gorm"
)

// Session-local settings read by the row-level policies. They are bound with
// set_config(..., true), which scopes the value to the current transaction:
// commit or rollback clears it before the connection goes back to the pool, so
// a pooled connection can never carry one tenant's binding into another
// tenant's request.
const (
	SettingTenantID = "app.tenant_id"
	SettingBypass   = "app.bypass"
)

// boundCtxKey marks a context whose session went through the binder. The
// isolation guard rejects statements against tenant-scoped tables when the
// statement context lacks the mark.
type boundCtxKey struct{}

func markBound(ctx context.Context) context.Context {
	return context.WithValue(ctx, boundCtxKey{}, true)
}

// SessionBound reports whether the context belongs to a bound session.
func SessionBound(ctx context.Context) bool {
	bound, _ := ctx.Value(boundCtxKey{}).(bool)
	return bound
}

var (
	// ErrTenantContextUnbound means a storage operation on a tenant-scoped
	// table was attempted on a session that never went through the binder.
	// Fatal configuration error: the operation aborts instead of degrading to
	// an unscoped query.
	ErrTenantContextUnbound = errors.New("tenant context not bound to database session")

	// ErrBypassNotPermitted means EnableBypass was called for a principal
	// without the bypass capability.
	ErrBypassNotPermitted = errors.New("principal not permitted to bypass tenant isolation")
)

// ReleaseFunc finishes a bound session: commit when err is nil, rollback
// otherwise. Either way the transaction-local settings die with the
// transaction. Safe to call once on every exit path.
type ReleaseFunc func(err error) error

// BindSession opens a transaction on db and binds the tenant context resolved
// for ctx into it: the principal's tenant id as app.tenant_id and, for a
// bypass principal, app.bypass=on. The returned session is the only handle
// request code should run tenant-scoped queries on.
//
// With no principal (or a principal with neither tenant nor bypass) the
// session is bound with an empty tenant id: the row-level policies then see ''
// and match nothing, so an unscoped request reads zero rows rather than all
// rows.
func BindSession(ctx context.Context, db *gorm.DB) (*gorm.DB, ReleaseFunc, error) {
	tx := db.WithContext(markBound(ctx)).Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}

	release := func(err error) error {
		if err != nil {
			return tx.Rollback().Error
		}
		return tx.Commit().Error
	}

	if principal.BypassFromContext(ctx) {
		if err := EnableBypass(tx); err != nil {
			_ = release(err)
			return nil, nil, err
		}
	} else if err := DisableBypass(tx); err != nil {
		_ = release(err)
		return nil, nil, err
	}

	if tid := principal.TenantIDFromContext(ctx); tid != nil {
		if err := SetTenantContext(tx, *tid); err != nil {
			_ = release(err)
			return nil, nil, err
		}
	} else if err := ClearTenantContext(tx); err != nil {
		_ = release(err)
		return nil, nil, err
	}

	return tx, release, nil
}

// SystemSession opens a bound session with bypass active regardless of the
// request principal. Reserved for the identity resolver and provisioning
// bootstrap, which must read user and role rows before any tenant context
// exists. Request handlers never use it.
func SystemSession(ctx context.Context, db *gorm.DB) (*gorm.DB, ReleaseFunc, error) {
	tx := db.WithContext(markBound(ctx)).Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}

	release := func(err error) error {
		if err != nil {
			return tx.Rollback().Error
		}
		return tx.Commit().Error
	}

	if err := tx.Exec("SELECT set_config(?, ?, true)", SettingBypass, "on").Error; err != nil {
		_ = release(err)
		return nil, nil, err
	}

	return tx, release, nil
}

// SetTenantContext binds the tenant id into the session. Idempotent.
func SetTenantContext(tx *gorm.DB, tenantID uint) error {
	return tx.Exec("SELECT set_config(?, ?, true)",
		SettingTenantID, strconv.FormatUint(uint64(tenantID), 10)).Error
}

// ClearTenantContext resets the session tenant id to the empty string. The
// isolation policies treat an empty tenant id as match-nothing. Idempotent.
func ClearTenantContext(tx *gorm.DB) error {
	return tx.Exec("SELECT set_config(?, ?, true)", SettingTenantID, "").Error
}

// EnableBypass activates cross-tenant access on the session. Gated on the
// principal carried by the session context: an ordinary tenant-scoped
// principal cannot switch it on. Idempotent.
func EnableBypass(tx *gorm.DB) error {
	if !principal.BypassFromContext(tx.Statement.Context) {
		return ErrBypassNotPermitted
	}
	return tx.Exec("SELECT set_config(?, ?, true)", SettingBypass, "on").Error
}

// DisableBypass deactivates cross-tenant access on the session. Idempotent.
func DisableBypass(tx *gorm.DB) error {
	return tx.Exec("SELECT set_config(?, ?, true)", SettingBypass, "off").Error
}

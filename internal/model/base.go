package model

import (
	"errors"
	"time"

	"github.com/suteetoe/learnhub/internal/principal"
	"gorm.io/gorm"
)

// Object-level invariant errors. Both indicate a server-side programming
// defect, not a client mistake: they mean a write reached the persistence
// layer without going through the tenant scoping path.
var (
	ErrMissingTenantID = errors.New("tenant id not set on tenant-scoped entity")
	ErrTenantMismatch  = errors.New("entity tenant id does not match current tenant context")
)

// TenantModel is the base embedded by every tenant-scoped entity. The tenant
// id is mandatory and immutable after first persistence; rows are soft-deleted,
// never physically removed.
type TenantModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeSave refuses to persist a row without a tenant id, and refuses a row
// whose tenant id disagrees with the bound tenant context. This is a
// defense-in-depth check behind the row-level policies, not the primary
// isolation mechanism. A mismatch is never corrected silently: overwriting the
// entity's tenant id with the caller's would hide the exact bug this hook
// exists to surface.
func (m *TenantModel) BeforeSave(tx *gorm.DB) error {
	if m.TenantID == 0 {
		return ErrMissingTenantID
	}

	ctx := tx.Statement.Context
	if principal.BypassFromContext(ctx) {
		return nil
	}
	if tid := principal.TenantIDFromContext(ctx); tid != nil && *tid != m.TenantID {
		return ErrTenantMismatch
	}
	return nil
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Well-known role codes seeded at bootstrap.
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleInstructor  = "INSTRUCTOR"
)

// Role is a named bundle of permissions. A role with a non-null tenant id is
// visible and assignable only within that tenant; a null tenant id marks a
// system role, visible tenant-independently. System roles are global rows and
// carry no isolation policy.
type Role struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    *uint          `json:"tenant_id,omitempty" gorm:"index"` // nil = system role
	Code        string         `json:"code" gorm:"type:varchar(50);not null;index"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	IsSystem    bool           `json:"is_system" gorm:"default:false"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database. TenantID is nullable
// only for system-wide administrators; every ordinary user belongs to exactly
// one tenant and the users table carries a row-level policy keyed on it.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	Name      string         `json:"name" gorm:"type:varchar(100)"`
	TenantID  *uint          `json:"tenant_id,omitempty" gorm:"index"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserRole assigns a role to a user. The tenant scope comes from the role
// itself: a user can only ever be assigned roles visible in their tenant, or
// system roles.
type UserRole struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null;uniqueIndex:idx_user_role"`
	RoleID    uint           `json:"role_id" gorm:"index;not null;uniqueIndex:idx_user_role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

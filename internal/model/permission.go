package model

import (
	"strings"
	"time"
)

// PermissionModuleTenants is the reserved tenant-management module. Its
// permissions may only ever be granted to system roles.
const PermissionModuleTenants = "tenants"

// Permission is an atomic capability identified by a stable code of the form
// "<module>:<action>", e.g. "courses:publish". Codes are immutable once
// referenced. Permissions are global rows, readable by every tenant; the
// module column exists for display grouping only.
type Permission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Code        string    `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Module      string    `json:"module" gorm:"type:varchar(50);not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionModule returns the "<module>" part of a permission code.
func PermissionModule(code string) string {
	if i := strings.Index(code, ":"); i >= 0 {
		return code[:i]
	}
	return code
}

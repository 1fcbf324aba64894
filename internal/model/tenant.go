package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription plans
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Subscription statuses
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Tenant represents an isolated customer organization. It is a global table:
// it carries no tenant_id column and no row-level policy, write access is
// gated by the authorization layer alone. Tenants are soft-deleted, never
// hard-deleted, so historical data stays auditable.
type Tenant struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Plan        string         `json:"plan" gorm:"type:varchar(20);not null;default:'starter'"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'trial'"`
	MaxUsers    int            `json:"max_users" gorm:"default:25"`
	MaxCourses  int            `json:"max_courses" gorm:"default:10"`
	MaxStudents int            `json:"max_students" gorm:"default:250"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// SubscriptionPlan is the global plan catalog row holding per-plan default
// quota limits. Globally readable by design.
type SubscriptionPlan struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Code        string    `json:"code" gorm:"type:varchar(20);uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"type:varchar(50);not null"`
	MaxUsers    int       `json:"max_users"`
	MaxCourses  int       `json:"max_courses"`
	MaxStudents int       `json:"max_students"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentPending   = "pending"
	EnrollmentConfirmed = "confirmed"
	EnrollmentCancelled = "cancelled"
)

// Enrollment links a student to a course session. This is the one tenant-owned
// table without its own tenant_id column: ownership is inherited from the
// session, and its row-level policy expresses that with an existence check
// against course_sessions instead of a column comparison.
type Enrollment struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	CourseSessionID uint           `json:"course_session_id" gorm:"index;not null;uniqueIndex:idx_session_student"`
	StudentID       uint           `json:"student_id" gorm:"index;not null;uniqueIndex:idx_session_student"`
	Status          string         `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	EnrolledAt      time.Time      `json:"enrolled_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	CourseSession CourseSession `json:"course_session,omitempty" gorm:"foreignKey:CourseSessionID"`
}

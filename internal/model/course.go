package model

import "time"

// Course statuses
const (
	CourseDraft     = "draft"
	CoursePublished = "published"
	CourseArchived  = "archived"
)

// Course is a tenant-scoped entity: every row carries a mandatory tenant id
// enforced at the object level (TenantModel hook) and at the storage level
// (row-level policy).
type Course struct {
	TenantModel
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(200);index;not null"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	OwnerID     uint   `json:"owner_id" gorm:"index;not null"`

	Sessions []CourseSession `json:"sessions,omitempty" gorm:"foreignKey:CourseID"`
}

// CourseSession is a scheduled run of a course. Tenant id is duplicated on the
// child row rather than inherited through the course join; that keeps its
// row-level policy a plain column comparison.
type CourseSession struct {
	TenantModel
	CourseID  uint      `json:"course_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Capacity  int       `json:"capacity" gorm:"default:30"`
	Location  string    `json:"location" gorm:"type:varchar(200)"`
	Published bool      `json:"published" gorm:"default:false"`
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// SessionRequest defines the structure for course session requests
type SessionRequest struct {
	CourseID uint      `json:"course_id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Capacity int       `json:"capacity"`
	Location string    `json:"location"`
}

// CreateSession schedules a session for a course in the current tenant.
func CreateSession(c echo.Context) error {
	log := logger.FromEcho(c)

	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.CourseID == 0 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "course_id and name are required"})
	}

	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	tx := database.FromEcho(c)

	// The policies hide foreign courses, so a cross-tenant course id reads as
	// not-found here.
	var course model.Course
	if err := tx.First(&course, req.CourseID).Error; err != nil {
		return storageError(c, err)
	}

	session := model.CourseSession{
		TenantModel: model.TenantModel{TenantID: *tid},
		CourseID:    course.ID,
		Name:        req.Name,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		Location:    req.Location,
	}
	if session.Capacity == 0 {
		session.Capacity = 30
	}
	if err := tx.Create(&session).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Session scheduled",
		zap.Uint("session_id", session.ID),
		zap.Uint("course_id", course.ID))
	return c.JSON(http.StatusCreated, session)
}

// ListSessions returns the sessions visible to the bound session, optionally
// filtered by course.
func ListSessions(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	tx := database.FromEcho(c).Order("starts_at")
	if courseID := c.QueryParam("course_id"); courseID != "" {
		id, err := strconv.ParseUint(courseID, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
		}
		tx = tx.Where("course_id = ?", uint(id))
	}

	var sessions []model.CourseSession
	if err := tx.Find(&sessions).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// EnrollStudent enrolls a student into a course session. Enrollments carry no
// tenant id of their own: the row-level policy checks ownership through the
// session row.
func EnrollStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		CourseSessionID uint `json:"course_session_id"`
		StudentID       uint `json:"student_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.CourseSessionID == 0 || req.StudentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "course_session_id and student_id are required"})
	}

	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	tx := database.FromEcho(c)

	var session model.CourseSession
	if err := tx.First(&session, req.CourseSessionID).Error; err != nil {
		return storageError(c, err)
	}

	// Tenant-level student quota: distinct students across all of the
	// tenant's enrollments, which is what the bound session sees.
	var tenant model.Tenant
	if err := tx.First(&tenant, *tid).Error; err != nil {
		return storageError(c, err)
	}
	var students int64
	if err := tx.Model(&model.Enrollment{}).
		Distinct("student_id").
		Count(&students).Error; err != nil {
		return storageError(c, err)
	}
	if tenant.MaxStudents > 0 && students >= int64(tenant.MaxStudents) {
		log.Warn("Student quota exceeded",
			zap.Uint("tenant_id", *tid),
			zap.Int64("students", students),
			zap.Int("limit", tenant.MaxStudents))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "student quota exceeded for plan"})
	}

	var enrolled int64
	if err := tx.Model(&model.Enrollment{}).
		Where("course_session_id = ?", session.ID).
		Count(&enrolled).Error; err != nil {
		return storageError(c, err)
	}
	if session.Capacity > 0 && enrolled >= int64(session.Capacity) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
	}

	enrollment := model.Enrollment{
		CourseSessionID: session.ID,
		StudentID:       req.StudentID,
		Status:          model.EnrollmentPending,
		EnrolledAt:      time.Now(),
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Student enrolled",
		zap.Uint("session_id", session.ID),
		zap.Uint("student_id", req.StudentID))
	return c.JSON(http.StatusCreated, enrollment)
}

// ListEnrollments returns the enrollments for a session.
func ListEnrollments(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	var enrollments []model.Enrollment
	if err := database.FromEcho(c).
		Where("course_session_id = ?", uint(id)).
		Order("enrolled_at").
		Find(&enrollments).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, enrollments)
}

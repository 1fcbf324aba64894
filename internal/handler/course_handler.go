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

// CourseRequest defines the structure for course creation/update requests
type CourseRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CreateCourse creates a new course for the current tenant, subject to the
// tenant's course quota.
func CreateCourse(c echo.Context) error {
	log := logger.FromEcho(c)

	var req CourseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}

	p := principal.CurrentUser(c)
	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tx := database.FromEcho(c)

	// Quota check against the tenant record.
	var tenant model.Tenant
	if err := tx.First(&tenant, *tid).Error; err != nil {
		return storageError(c, err)
	}
	var count int64
	if err := tx.Model(&model.Course{}).Count(&count).Error; err != nil {
		return storageError(c, err)
	}
	if tenant.MaxCourses > 0 && count >= int64(tenant.MaxCourses) {
		log.Warn("Course quota exceeded",
			zap.Uint("tenant_id", *tid),
			zap.Int64("count", count),
			zap.Int("limit", tenant.MaxCourses))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "course quota exceeded for plan"})
	}

	course := model.Course{
		TenantModel: model.TenantModel{TenantID: *tid},
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Status:      model.CourseDraft,
		OwnerID:     p.UserID,
	}
	if err := tx.Create(&course).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Course created", zap.Uint("course_id", course.ID))
	return c.JSON(http.StatusCreated, course)
}

// ListCourses returns the courses visible to the bound session. The row-level
// policies do the tenant filtering: no tenant predicate appears here, and a
// foreign tenant's courses simply never show up.
func ListCourses(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var courses []model.Course
	if err := database.FromEcho(c).Order("id").Find(&courses).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, courses)
}

// GetCourse returns one course by id.
func GetCourse(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	var course model.Course
	if err := database.FromEcho(c).First(&course, uint(id)).Error; err != nil {
		// A foreign tenant's course is filtered by the policies and lands
		// here as not-found: indistinguishable from never having existed.
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, course)
}

// UpdateCourse modifies title, slug or description.
func UpdateCourse(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	var req CourseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tx := database.FromEcho(c)
	var course model.Course
	if err := tx.First(&course, uint(id)).Error; err != nil {
		return storageError(c, err)
	}

	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Slug != "" {
		course.Slug = req.Slug
	}
	if req.Description != "" {
		course.Description = req.Description
	}

	if err := tx.Save(&course).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Course updated", zap.Uint("course_id", course.ID))
	return c.JSON(http.StatusOK, course)
}

// PublishCourse moves a course to the published status. Gated on
// courses:publish.
func PublishCourse(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	tx := database.FromEcho(c)
	var course model.Course
	if err := tx.First(&course, uint(id)).Error; err != nil {
		return storageError(c, err)
	}

	course.Status = model.CoursePublished
	if err := tx.Save(&course).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Course published", zap.Uint("course_id", course.ID))
	return c.JSON(http.StatusOK, course)
}

// DeleteCourse soft-deletes a course.
func DeleteCourse(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	tx := database.FromEcho(c)
	var course model.Course
	if err := tx.First(&course, uint(id)).Error; err != nil {
		return storageError(c, err)
	}

	if err := tx.Delete(&course).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Course soft-deleted", zap.Uint("course_id", course.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "course deleted"})
}

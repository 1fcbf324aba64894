package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// CreateTenant provisions a tenant without a first user: the platform
// operator flow. Gated on tenants:create, which only system roles can hold.
func CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("create")

	var req struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
		Plan string `json:"plan,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Slug == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug and name are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	tx := database.FromEcho(c)

	plan := req.Plan
	if plan == "" {
		plan = model.PlanStarter
	}
	var planRow model.SubscriptionPlan
	if err := tx.Where("code = ?", plan).First(&planRow).Error; err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan"})
	}

	tenant := model.Tenant{
		Slug:        strings.ToLower(req.Slug),
		Name:        req.Name,
		Plan:        planRow.Code,
		Status:      model.StatusTrial,
		MaxUsers:    planRow.MaxUsers,
		MaxCourses:  planRow.MaxCourses,
		MaxStudents: planRow.MaxStudents,
		Active:      true,
	}
	if err := tx.Create(&tenant).Error; err != nil {
		log.Error("Failed to create tenant", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "tenant slug already in use"})
	}

	if _, err := authz.ProvisionTenantAdminRole(tx, tenant.ID); err != nil {
		return storageError(c, err)
	}
	if _, err := authz.ProvisionInstructorRole(tx, tenant.ID); err != nil {
		return storageError(c, err)
	}

	log.Info("Tenant created", zap.String("slug", tenant.Slug), zap.Uint("tenant_id", tenant.ID))
	return c.JSON(http.StatusCreated, tenant)
}

// ListTenants returns every tenant. Gated on tenants:read.
func ListTenants(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenants []model.Tenant
	if err := database.FromEcho(c).Order("id").Find(&tenants).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, tenants)
}

// GetCurrentTenant returns the tenant the request principal belongs to.
func GetCurrentTenant(c echo.Context) error {
	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	var tenant model.Tenant
	if err := database.FromEcho(c).First(&tenant, *tid).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant changes plan, status or quota limits. Gated on tenants:update.
func UpdateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	var req struct {
		Plan        *string `json:"plan,omitempty"`
		Status      *string `json:"status,omitempty"`
		MaxUsers    *int    `json:"max_users,omitempty"`
		MaxCourses  *int    `json:"max_courses,omitempty"`
		MaxStudents *int    `json:"max_students,omitempty"`
		Active      *bool   `json:"active,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tx := database.FromEcho(c)

	var tenant model.Tenant
	if err := tx.First(&tenant, uint(id)).Error; err != nil {
		return storageError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Plan != nil {
		updates["plan"] = *req.Plan
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.MaxUsers != nil {
		updates["max_users"] = *req.MaxUsers
	}
	if req.MaxCourses != nil {
		updates["max_courses"] = *req.MaxCourses
	}
	if req.MaxStudents != nil {
		updates["max_students"] = *req.MaxStudents
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := tx.Model(&tenant).Updates(updates).Error; err != nil {
			return storageError(c, err)
		}
	}

	log.Info("Tenant updated", zap.Uint("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant soft-deletes a tenant. Gated on tenants:delete; historical
// rows stay in place for auditability.
func DeleteTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	tx := database.FromEcho(c)

	var tenant model.Tenant
	if err := tx.First(&tenant, uint(id)).Error; err != nil {
		return storageError(c, err)
	}

	if err := tx.Delete(&tenant).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Tenant soft-deleted", zap.Uint("tenant_id", tenant.ID), zap.String("slug", tenant.Slug))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
}

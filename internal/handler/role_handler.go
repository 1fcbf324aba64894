package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// CreateRole creates a tenant-scoped role. Gated on roles:create.
func CreateRole(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Code == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and name are required"})
	}

	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	role := model.Role{
		TenantID:    tid,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if err := database.FromEcho(c).Create(&role).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Role created", zap.String("code", role.Code), zap.Uint("role_id", role.ID))
	return c.JSON(http.StatusCreated, role)
}

// ListRoles returns the roles visible to the bound session: the tenant's own
// roles plus the global system roles.
func ListRoles(c echo.Context) error {
	var roles []model.Role
	if err := database.FromEcho(c).Order("id").Find(&roles).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// GrantRolePermission grants a permission code to a role. Gated on
// roles:grant. Tenant roles are refused permissions from the reserved
// tenant-management module regardless of who asks.
func GrantRolePermission(c echo.Context) error {
	log := logger.FromEcho(c)

	roleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.Bind(&req); err != nil || req.Permission == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "permission is required"})
	}

	tx := database.FromEcho(c)

	var role model.Role
	if err := tx.First(&role, uint(roleID)).Error; err != nil {
		return storageError(c, err)
	}

	if err := authz.GrantPermission(tx, &role, req.Permission); err != nil {
		if errors.Is(err, authz.ErrReservedPermission) {
			log.Warn("Refused reserved permission grant",
				zap.String("permission", req.Permission),
				zap.Uint("role_id", role.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "permission is reserved for system roles"})
		}
		if errors.Is(err, authz.ErrSystemRoleImmutable) {
			prometheus.RecordAuthzDenied("system_role_grant")
			log.Warn("Refused grant on system role",
				zap.String("permission", req.Permission),
				zap.Uint("role_id", role.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "system role grants cannot be changed from a tenant session"})
		}
		return storageError(c, err)
	}

	log.Info("Permission granted",
		zap.String("permission", req.Permission),
		zap.String("role", role.Code))
	return c.JSON(http.StatusOK, echo.Map{"message": "permission granted"})
}

// AssignRole assigns a role to a user in the current tenant. Gated on
// roles:grant.
func AssignRole(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role_id are required"})
	}

	tx := database.FromEcho(c)

	// Both lookups run on the bound session, so a foreign tenant's user or
	// role reads as not-found.
	var user model.User
	if err := tx.First(&user, req.UserID).Error; err != nil {
		return storageError(c, err)
	}
	var role model.Role
	if err := tx.First(&role, req.RoleID).Error; err != nil {
		return storageError(c, err)
	}

	// System roles (nil tenant) are readable from any tenant session, but
	// handing one out is global authorization state: only a bypass principal
	// may assign them.
	if role.TenantID == nil {
		p := principal.CurrentUser(c)
		if p == nil || !p.Bypass {
			prometheus.RecordAuthzDenied("system_role_assignment")
			log.Warn("Refused system role assignment",
				zap.String("role", role.Code),
				zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "system roles cannot be assigned from a tenant session"})
		}
	}

	assignment := model.UserRole{UserID: user.ID, RoleID: role.ID}
	if err := tx.Create(&assignment).Error; err != nil {
		return storageError(c, err)
	}

	log.Info("Role assigned",
		zap.Uint("user_id", user.ID),
		zap.String("role", role.Code))
	return c.JSON(http.StatusCreated, assignment)
}

// ListPermissions returns the global permission catalog.
func ListPermissions(c echo.Context) error {
	var perms []model.Permission
	if err := database.FromEcho(c).Order("module, code").Find(&perms).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, perms)
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser adds a user to the current tenant, subject to the tenant's user
// quota. Gated on users:create.
func CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	tid := principal.CurrentTenantID(c)
	if tid == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tx := database.FromEcho(c)

	var tenant model.Tenant
	if err := tx.First(&tenant, *tid).Error; err != nil {
		return storageError(c, err)
	}
	// The bound session only sees this tenant's user rows, so a bare count is
	// the tenant's headcount.
	var count int64
	if err := tx.Model(&model.User{}).Count(&count).Error; err != nil {
		return storageError(c, err)
	}
	if tenant.MaxUsers > 0 && count >= int64(tenant.MaxUsers) {
		log.Warn("User quota exceeded",
			zap.Uint("tenant_id", *tid),
			zap.Int64("count", count),
			zap.Int("limit", tenant.MaxUsers))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user quota exceeded for plan"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		TenantID: tid,
		Active:   true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	log.Info("User created", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns the users visible to the bound session.
func ListUsers(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var users []model.User
	if err := database.FromEcho(c).Order("id").Find(&users).Error; err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

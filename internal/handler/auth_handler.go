package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/jwtutil"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register handles signup. When a tenant slug and name are supplied a new
// tenant is provisioned and the registering user becomes its tenant
// administrator.
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		TenantSlug string `json:"tenant_slug"`
		TenantName string `json:"tenant_name"`
		Plan       string `json:"plan,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse register request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" || req.TenantSlug == "" || req.TenantName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password, tenant_slug and tenant_name are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	// Provisioning runs on a system session: the tenant, its admin role and
	// its first user do not exist yet, so there is no tenant context to bind.
	tx, release, err := database.SystemSession(c.Request().Context(), database.GetDB())
	if err != nil {
		log.Error("Failed to open provisioning session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var user model.User
	err = func() error {
		plan := req.Plan
		if plan == "" {
			plan = model.PlanStarter
		}
		var planRow model.SubscriptionPlan
		if err := tx.Where("code = ?", plan).First(&planRow).Error; err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown plan")
		}

		tenant := model.Tenant{
			Slug:        strings.ToLower(req.TenantSlug),
			Name:        req.TenantName,
			Plan:        planRow.Code,
			Status:      model.StatusTrial,
			MaxUsers:    planRow.MaxUsers,
			MaxCourses:  planRow.MaxCourses,
			MaxStudents: planRow.MaxStudents,
			Active:      true,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return echo.NewHTTPError(http.StatusConflict, "tenant slug already in use")
		}

		user = model.User{
			Email:    req.Email,
			Password: string(hashed),
			Name:     req.Name,
			TenantID: &tenant.ID,
			Active:   true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}

		adminRole, err := authz.ProvisionTenantAdminRole(tx, tenant.ID)
		if err != nil {
			return err
		}
		if _, err := authz.ProvisionInstructorRole(tx, tenant.ID); err != nil {
			return err
		}
		if err := tx.Create(&model.UserRole{UserID: user.ID, RoleID: adminRole.ID}).Error; err != nil {
			return err
		}

		prometheus.RecordTenantOperation("provision")
		return nil
	}()

	if rerr := release(err); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return c.JSON(httpErr.Code, echo.Map{"error": httpErr.Message})
		}
		log.Error("Failed to provision tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("Tenant provisioned",
		zap.String("tenant_slug", req.TenantSlug),
		zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful",
		"user_id": user.ID,
	})
}

// Login verifies credentials and issues the access/refresh token pair.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	tx, release, err := database.SystemSession(c.Request().Context(), database.GetDB())
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var user model.User
	var roleCodes []string
	err = func() error {
		if err := tx.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&model.Role{}).
			Joins("JOIN user_roles ON user_roles.role_id = roles.id AND user_roles.deleted_at IS NULL").
			Where("user_roles.user_id = ?", user.ID).
			Pluck("roles.code", &roleCodes).Error
	}()
	if rerr := release(err); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	accessToken, err := jwtutil.Default().GenerateAccessToken(user.Email, user.ID, user.TenantID, roleCodes)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	refreshToken, err := jwtutil.Default().GenerateRefreshToken(user.ID)
	if err != nil {
		log.Error("Failed to generate refresh token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Refresh exchanges a valid refresh token for a fresh access token. Tenant
// and roles are re-resolved from storage, not trusted from the old token.
func Refresh(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	claims, err := jwtutil.Default().ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	tx, release, err := database.SystemSession(c.Request().Context(), database.GetDB())
	if err != nil {
		log.Error("Failed to open session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var user model.User
	var roleCodes []string
	err = func() error {
		if err := tx.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&model.Role{}).
			Joins("JOIN user_roles ON user_roles.role_id = roles.id AND user_roles.deleted_at IS NULL").
			Where("user_roles.user_id = ?", user.ID).
			Pluck("roles.code", &roleCodes).Error
	}()
	if rerr := release(err); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		prometheus.RecordAuthError("principal_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	accessToken, err := jwtutil.Default().GenerateAccessToken(user.Email, user.ID, user.TenantID, roleCodes)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

// GetProfile returns the resolved principal for the current request.
func GetProfile(c echo.Context) error {
	p := principal.CurrentUser(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	perms := make([]string, 0, len(p.Permissions))
	for code := range p.Permissions {
		perms = append(perms, code)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     p.UserID,
		"email":       p.Email,
		"tenant_id":   p.TenantID,
		"roles":       p.Roles,
		"permissions": perms,
		"bypass":      p.Bypass,
	})
}

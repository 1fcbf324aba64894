package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// storageError maps a storage-layer error to an HTTP response. Isolation
// invariant violations are server-side defects: they are logged loudly and
// surface as 500, never recovered into an unscoped retry. A silent fallback
// would itself be the isolation breach the checks exist to prevent.
func storageError(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, model.ErrMissingTenantID):
		prometheus.RecordInvariantViolation("missing_tenant_id")
		log.Error("Tenant id missing on tenant-scoped entity", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	case errors.Is(err, model.ErrTenantMismatch):
		prometheus.RecordInvariantViolation("tenant_mismatch")
		log.Error("Entity tenant id disagrees with request tenant context", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	case errors.Is(err, database.ErrTenantContextUnbound):
		prometheus.RecordInvariantViolation("session_unbound")
		log.Error("Storage operation without bound tenant session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	default:
		log.Error("Database error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

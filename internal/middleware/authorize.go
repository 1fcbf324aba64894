package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// RequireCapability gates a route on the authorization decision point. A
// missing principal yields 401, a principal lacking the capability 403. The
// two are deliberately distinct outcomes.
func RequireCapability(cap authz.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			p := principal.CurrentUser(c)
			if err := authz.Authorize(p, cap); err != nil {
				if errors.Is(err, authz.ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
				}
				label := cap.Permission
				if label == "" && len(cap.Roles) > 0 {
					label = cap.Roles[0]
				}
				prometheus.RecordAuthzDenied(label)
				log.Warn("Authorization denied",
					zap.String("capability", label),
					zap.Uint("user_id", p.UserID))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}

			return next(c)
		}
	}
}

// RequirePermission gates a route on a single permission code.
func RequirePermission(code string) echo.MiddlewareFunc {
	return RequireCapability(authz.RequirePermission(code))
}

// RequireRole gates a route on holding any of the given role codes.
func RequireRole(codes ...string) echo.MiddlewareFunc {
	return RequireCapability(authz.RequireAnyRole(codes...))
}

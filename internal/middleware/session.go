package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// TenantSessionMiddleware binds the resolved tenant context into a database
// session for the duration of the request and releases it on every exit path.
// The binding is transaction-local, so the pooled connection returns to the
// pool clean whether the handler succeeds, fails or panics mid-flight.
func TenantSessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			log := logger.FromEcho(c)
			ctx := c.Request().Context()

			tx, release, bindErr := database.BindSession(ctx, database.GetDB())
			if bindErr != nil {
				log.Error("Failed to bind tenant session", zap.Error(bindErr))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if principal.BypassFromContext(ctx) {
				prometheus.BypassSessionCounter.Inc()
			}

			defer func() {
				if r := recover(); r != nil {
					_ = release(echo.ErrInternalServerError)
					panic(r)
				}
				if rerr := release(err); rerr != nil {
					log.Error("Failed to release tenant session", zap.Error(rerr))
				}
			}()

			database.SetEcho(c, tx)
			return next(c)
		}
	}
}

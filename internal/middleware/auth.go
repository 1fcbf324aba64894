package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/jwtutil"
	"github.com/suteetoe/learnhub/pkg/logger"
	"github.com/suteetoe/learnhub/prometheus"
	"go.uber.org/zap"
)

// JWTAuthMiddleware validates the bearer token and resolves the request
// principal. The principal is attached to the request context exactly once
// here; everything downstream (session binder, invariant guard, authorization)
// reads it from there. The context dies with the request, so the tenant scope
// can never leak between concurrent requests.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwtUtil.ValidateAccessToken(parts[1])
			if err != nil {
				switch {
				case errors.Is(err, jwtutil.ErrExpiredCredential):
					prometheus.RecordAuthError("expired_token")
				default:
					prometheus.RecordAuthError("invalid_token")
				}
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			p, err := authz.ResolvePrincipal(c.Request().Context(), database.GetDB(), claims)
			if err != nil {
				if errors.Is(err, authz.ErrPrincipalNotFound) {
					log.Warn("Token references unknown or inactive user", zap.Uint("user_id", claims.UserID))
					prometheus.RecordAuthError("principal_not_found")
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
				}
				log.Error("Failed to resolve principal", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			log = log.With(
				zap.Uint("user_id", p.UserID),
				zap.String("email", p.Email),
			)
			if p.TenantID != nil {
				log = log.With(zap.Uint("tenant_id", *p.TenantID))
			}

			// Attach the principal and the enriched logger to the request
			// context.
			ctx := principal.NewContext(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx, log)))
			c.Set("logger", log)

			return next(c)
		}
	}
}

// RequireTenantContext ensures the resolved principal carries a tenant scope
// (or bypass). Routes serving tenant data mount it after JWTAuthMiddleware.
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		p := principal.CurrentUser(c)
		if p == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if p.TenantID == nil && !p.Bypass {
			log.Warn("Missing tenant context")
			prometheus.TenantContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "tenant context required",
				"message": "This account is not associated with a tenant",
			})
		}

		return next(c)
	}
}

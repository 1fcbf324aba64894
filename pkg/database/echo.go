package database

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// sessionKey is where the tenant-session middleware stores the bound session
// for the request.
const sessionKey = "db_session"

// SetEcho stores the bound session in the Echo context for handlers.
func SetEcho(c echo.Context, tx *gorm.DB) {
	c.Set(sessionKey, tx)
}

// FromEcho retrieves the request's bound session. Falls back to the global
// handle when no session was bound; the isolation guard then rejects any
// tenant-scoped statement on it, so the fallback cannot silently widen a
// query's scope.
func FromEcho(c echo.Context) *gorm.DB {
	tx, ok := c.Get(sessionKey).(*gorm.DB)
	if !ok {
		return GetDB()
	}
	return tx
}

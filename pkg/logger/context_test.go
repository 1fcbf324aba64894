package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "abc"))

	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
}

// The request middleware must make the request logger recoverable from the
// plain request context, not just the echo context, so storage callbacks and
// resolvers can log with the request id attached.
func TestMiddlewarePutsLoggerOnRequestContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var fromEcho, fromCtx *zap.Logger
	h := Middleware()(func(c echo.Context) error {
		fromEcho = FromEcho(c)
		fromCtx = FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))

	require.NotNil(t, fromCtx)
	assert.Same(t, fromEcho, fromCtx)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/learnhub/internal/authz"
	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/jwtutil"
)

func testJWTUtil() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		AccessSigningKey:  "test-access-secret",
		AccessExpiration:  15 * time.Minute,
		RefreshSigningKey: "test-refresh-secret",
		RefreshExpiration: 24 * time.Hour,
	})
}

// invoke runs the handler chain against a fresh echo context and reports the
// recorded response plus whether the terminal handler ran.
func invoke(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var reached bool
	h := mw(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, reached
}

func requestWithPrincipal(p *principal.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(principal.NewContext(req.Context(), p))
	}
	return req
}

func TestJWTAuthMiddlewareMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, reached := invoke(t, JWTAuthMiddleware(testJWTUtil()), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthMiddlewareMalformedHeader(t *testing.T) {
	for _, header := range []string{"Basic abc123", "Bearer", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec, reached := invoke(t, JWTAuthMiddleware(testJWTUtil()), req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.False(t, reached)
	}
}

func TestJWTAuthMiddlewareInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec, reached := invoke(t, JWTAuthMiddleware(testJWTUtil()), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTAuthMiddlewareExpiredToken(t *testing.T) {
	expired := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		AccessSigningKey: "test-access-secret",
		AccessExpiration: -time.Minute,
	})
	tenantID := uint(1)
	token, err := expired.GenerateAccessToken("a@b.test", 1, &tenantID, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, reached := invoke(t, JWTAuthMiddleware(testJWTUtil()), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireTenantContext(t *testing.T) {
	tenantID := uint(42)

	tests := []struct {
		name        string
		p           *principal.Principal
		wantCode    int
		wantReached bool
	}{
		{"no principal", nil, http.StatusUnauthorized, false},
		{"no tenant no bypass", &principal.Principal{UserID: 1}, http.StatusForbidden, false},
		{"tenant bound", &principal.Principal{UserID: 1, TenantID: &tenantID}, http.StatusOK, true},
		{"bypass without tenant", &principal.Principal{UserID: 1, Bypass: true}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reached := invoke(t, RequireTenantContext, requestWithPrincipal(tt.p))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantReached, reached)
		})
	}
}

func TestRequireCapability(t *testing.T) {
	tenantID := uint(42)
	granted := &principal.Principal{
		UserID:   1,
		TenantID: &tenantID,
		Roles:    []string{model.RoleInstructor},
		Permissions: map[string]struct{}{
			authz.PermCoursesRead: {},
		},
	}

	tests := []struct {
		name        string
		p           *principal.Principal
		mw          echo.MiddlewareFunc
		wantCode    int
		wantReached bool
	}{
		{"unauthenticated", nil, RequirePermission(authz.PermCoursesRead), http.StatusUnauthorized, false},
		{"permission granted", granted, RequirePermission(authz.PermCoursesRead), http.StatusOK, true},
		{"permission missing", granted, RequirePermission(authz.PermTenantsDelete), http.StatusForbidden, false},
		{"role granted", granted, RequireRole(model.RoleInstructor, model.RoleTenantAdmin), http.StatusOK, true},
		{"role missing", granted, RequireRole(model.RoleSuperAdmin), http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reached := invoke(t, tt.mw, requestWithPrincipal(tt.p))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantReached, reached)
		})
	}
}

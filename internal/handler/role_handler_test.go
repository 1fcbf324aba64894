package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/learnhub/internal/authz"
)

// Granting a tenant-management permission to a tenant-scoped role is refused
// outright, no matter which principal asks. The role lookup runs, the grant
// never does.
func TestGrantRolePermissionReserved(t *testing.T) {
	mock := useMockDB(t)

	body := `{"permission":"` + authz.PermTenantsBypass + `"}`
	req := jsonRequest(http.MethodPost, "/api/roles/5/permissions", body)
	c, rec, release := boundContext(t, mock, req, 42)
	c.SetParamNames("id")
	c.SetParamValues("5")

	roleRows := sqlmock.NewRows([]string{"id", "tenant_id", "code", "is_system", "active"}).
		AddRow(5, 42, "CUSTOM", false, true)
	mock.ExpectQuery(`SELECT (.+) FROM "roles"`).
		WillReturnRows(roleRows)
	mock.ExpectCommit()

	require.NoError(t, GrantRolePermission(c))
	require.NoError(t, release(nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "reserved")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRolePermissionMissingBody(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/roles/5/permissions", `{}`)
	c, rec := newTestContext(req)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, GrantRolePermission(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignRoleMissingFields(t *testing.T) {
	c, rec := newTestContext(jsonRequest(http.MethodPost, "/api/roles/assign", `{"user_id":7}`))
	require.NoError(t, AssignRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A tenant session can read the global SUPER_ADMIN row, but assigning it
// would hand the assignee the full catalog (bypass included) on their next
// request. The handler refuses before the assignment insert ever runs.
func TestAssignRoleRefusesSystemRole(t *testing.T) {
	mock := useMockDB(t)

	req := jsonRequest(http.MethodPost, "/api/roles/assignments", `{"user_id":7,"role_id":1}`)
	c, rec, release := boundContext(t, mock, req, 42)

	userRows := sqlmock.NewRows([]string{"id", "email", "tenant_id", "active"}).
		AddRow(7, "member@acme.test", 42, true)
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRows)
	roleRows := sqlmock.NewRows([]string{"id", "tenant_id", "code", "is_system", "active"}).
		AddRow(1, nil, "SUPER_ADMIN", true, true)
	mock.ExpectQuery(`SELECT (.+) FROM "roles"`).
		WillReturnRows(roleRows)
	mock.ExpectCommit()

	require.NoError(t, AssignRole(c))
	require.NoError(t, release(nil))

	// No INSERT reached the connection.
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoleTenantRole(t *testing.T) {
	mock := useMockDB(t)

	req := jsonRequest(http.MethodPost, "/api/roles/assignments", `{"user_id":7,"role_id":5}`)
	c, rec, release := boundContext(t, mock, req, 42)

	userRows := sqlmock.NewRows([]string{"id", "email", "tenant_id", "active"}).
		AddRow(7, "member@acme.test", 42, true)
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRows)
	roleRows := sqlmock.NewRows([]string{"id", "tenant_id", "code", "is_system", "active"}).
		AddRow(5, 42, "INSTRUCTOR", false, true)
	mock.ExpectQuery(`SELECT (.+) FROM "roles"`).
		WillReturnRows(roleRows)
	mock.ExpectQuery(`INSERT INTO "user_roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	require.NoError(t, AssignRole(c))
	require.NoError(t, release(nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

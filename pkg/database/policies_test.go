package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(t *testing.T, stmts []string, prefix string) string {
	t.Helper()
	for _, s := range stmts {
		if strings.HasPrefix(s, prefix) {
			return s
		}
	}
	t.Fatalf("no statement with prefix %q in %v", prefix, stmts)
	return ""
}

func TestTenantPolicyDDL(t *testing.T) {
	stmts := tenantPolicyDDL("courses")

	assert.Contains(t, stmts, "ALTER TABLE courses ENABLE ROW LEVEL SECURITY")
	// FORCE so the table owner is not exempt.
	assert.Contains(t, stmts, "ALTER TABLE courses FORCE ROW LEVEL SECURITY")

	isolation := find(t, stmts, "CREATE POLICY tenant_isolation ON courses")
	// current_setting(..., true) yields NULL when unbound and NULL never
	// compares equal: an unbound session matches zero rows. Fail closed.
	assert.Contains(t, isolation, "tenant_id::text = current_setting('app.tenant_id', true)")
	// Writes are constrained the same way as reads.
	assert.Contains(t, isolation, "WITH CHECK")

	bypass := find(t, stmts, "CREATE POLICY tenant_bypass ON courses")
	assert.Contains(t, bypass, "current_setting('app.bypass', true) = 'on'")
}

func TestNullableTenantPolicyDDL(t *testing.T) {
	stmts := nullableTenantPolicyDDL("users")

	isolation := find(t, stmts, "CREATE POLICY tenant_isolation ON users")
	// System users (NULL tenant) are invisible to tenant sessions.
	assert.Contains(t, isolation, "tenant_id IS NOT NULL")
}

func TestSharedGlobalPolicyDDL(t *testing.T) {
	stmts := sharedGlobalPolicyDDL("roles")

	isolation := find(t, stmts, "CREATE POLICY tenant_isolation ON roles")
	// System roles (NULL tenant) are readable from any tenant session...
	assert.Contains(t, isolation, "tenant_id IS NULL OR tenant_id::text = current_setting('app.tenant_id', true)")
	// ...but a tenant session can only write rows of its own tenant.
	assert.Contains(t, isolation, "WITH CHECK (tenant_id IS NOT NULL AND tenant_id::text = current_setting('app.tenant_id', true))")
}

func TestInheritedPolicyDDL(t *testing.T) {
	stmts := inheritedPolicyDDL("enrollments", "course_sessions", "course_session_id")

	isolation := find(t, stmts, "CREATE POLICY tenant_isolation ON enrollments")
	// Ownership is expressed through the owning table, not a duplicated
	// column.
	assert.Contains(t, isolation,
		"EXISTS (SELECT 1 FROM course_sessions o WHERE o.id = enrollments.course_session_id AND o.tenant_id::text = current_setting('app.tenant_id', true))")
}

// Role assignments and permission grants are tenant-owned rows even though
// their tables carry no tenant_id column: scope is inherited from the owning
// user and role rows. Without these policies any bound session could read or
// rewrite another tenant's authorization state.
func TestAssociationTablesGetInheritedPolicies(t *testing.T) {
	stmts := rowLevelPolicyDDL()

	userRoles := find(t, stmts, "CREATE POLICY tenant_isolation ON user_roles")
	assert.Contains(t, userRoles,
		"EXISTS (SELECT 1 FROM users o WHERE o.id = user_roles.user_id AND o.tenant_id::text = current_setting('app.tenant_id', true))")

	rolePerms := find(t, stmts, "CREATE POLICY tenant_isolation ON role_permissions")
	assert.Contains(t, rolePerms,
		"EXISTS (SELECT 1 FROM roles o WHERE o.id = role_permissions.role_id AND o.tenant_id::text = current_setting('app.tenant_id', true))")

	// System roles have a NULL tenant id, which never matches the EXISTS
	// predicate: their grants are writable only under bypass.
	assert.Contains(t, stmts, "ALTER TABLE role_permissions FORCE ROW LEVEL SECURITY")
	assert.Contains(t, stmts, "ALTER TABLE user_roles FORCE ROW LEVEL SECURITY")
}

func TestEveryScopedTableGetsBothPolicies(t *testing.T) {
	for _, table := range tenantScopedTables {
		stmts := tenantPolicyDDL(table)
		require.Len(t, stmts, 6)

		var isolation, bypass bool
		for _, s := range stmts {
			if strings.HasPrefix(s, "CREATE POLICY tenant_isolation ON "+table) {
				isolation = true
			}
			if strings.HasPrefix(s, "CREATE POLICY tenant_bypass ON "+table) {
				bypass = true
			}
		}
		assert.True(t, isolation, "missing isolation policy for %s", table)
		assert.True(t, bypass, "missing bypass policy for %s", table)
	}
}

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Row-level security is the last line of defense: the policies below are
// evaluated by Postgres itself on every row read and write, so a bug in
// application code cannot leak cross-tenant rows. Each tenant-scoped table
// gets two permissive policies:
//
//   - tenant_isolation: the row's tenant id must equal the bound session
//     setting. current_setting(..., true) returns NULL when nothing is bound,
//     and NULL never compares equal, so an unbound session matches zero rows.
//   - tenant_bypass: when app.bypass is 'on' the row matches unconditionally.
//     This is how a system-wide administrator crosses tenant boundaries.
//
// Global reference tables (tenants, subscription_plans, permissions, system
// roles) carry no policy; their write access is gated by the authorization
// layer alone.

// tenantScopedTables are the tables carrying their own tenant_id column.
var tenantScopedTables = []string{
	"courses",
	"course_sessions",
}

// users has a nullable tenant_id: NULL rows are system administrators and
// are only visible under bypass.
//
// roles also has a nullable tenant_id, but with the opposite meaning for NULL:
// system roles are visible tenant-independently, while tenant roles stay
// isolated.

// rowLevelPolicyDDL is the complete policy set in force. Association tables
// without their own tenant_id column (enrollments, user_roles,
// role_permissions) inherit their scope from the owning row through an
// existence check, so a tenant session can only touch assignments and grants
// rooted in its own tenant.
func rowLevelPolicyDDL() []string {
	var stmts []string
	for _, table := range tenantScopedTables {
		stmts = append(stmts, tenantPolicyDDL(table)...)
	}
	stmts = append(stmts, nullableTenantPolicyDDL("users")...)
	stmts = append(stmts, sharedGlobalPolicyDDL("roles")...)
	stmts = append(stmts, inheritedPolicyDDL("enrollments", "course_sessions", "course_session_id")...)
	stmts = append(stmts, inheritedPolicyDDL("user_roles", "users", "user_id")...)
	stmts = append(stmts, inheritedPolicyDDL("role_permissions", "roles", "role_id")...)
	return stmts
}

// EnableRowLevelSecurity installs the isolation and bypass policies on every
// tenant-scoped table. Policies are dropped and recreated so the definition
// in this file is always the one in force. Must run after migration.
func EnableRowLevelSecurity(db *gorm.DB) error {
	for _, stmt := range rowLevelPolicyDDL() {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("applying row-level policy: %w", err)
		}
	}
	return nil
}

func enableRLSDDL(table string) []string {
	return []string{
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table),
		// FORCE so even the table owner is subject to the policies.
		fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", table),
	}
}

// tenantPolicyDDL builds the policy statements for a table with a mandatory
// tenant_id column.
func tenantPolicyDDL(table string) []string {
	isolation := fmt.Sprintf(
		"tenant_id::text = current_setting('%s', true)", SettingTenantID)
	bypass := fmt.Sprintf(
		"current_setting('%s', true) = 'on'", SettingBypass)

	stmts := enableRLSDDL(table)
	stmts = append(stmts,
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)",
			table, isolation, isolation),
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_bypass ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_bypass ON %s USING (%s) WITH CHECK (%s)",
			table, bypass, bypass),
	)
	return stmts
}

// nullableTenantPolicyDDL builds the policy statements for a table whose
// tenant_id may be NULL. The NULL rows are system rows: the isolation policy
// requires a non-null matching tenant id, leaving system rows visible only
// through the bypass policy.
func nullableTenantPolicyDDL(table string) []string {
	isolation := fmt.Sprintf(
		"tenant_id IS NOT NULL AND tenant_id::text = current_setting('%s', true)", SettingTenantID)
	bypass := fmt.Sprintf(
		"current_setting('%s', true) = 'on'", SettingBypass)

	stmts := enableRLSDDL(table)
	stmts = append(stmts,
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)",
			table, isolation, isolation),
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_bypass ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_bypass ON %s USING (%s) WITH CHECK (%s)",
			table, bypass, bypass),
	)
	return stmts
}

// sharedGlobalPolicyDDL builds the policy statements for a table mixing
// tenant rows with globally visible system rows (tenant_id NULL). System rows
// are readable from every tenant; tenant rows stay isolated. Writes to system
// rows still require bypass: the WITH CHECK clause only admits rows carrying
// the bound tenant id.
func sharedGlobalPolicyDDL(table string) []string {
	read := fmt.Sprintf(
		"tenant_id IS NULL OR tenant_id::text = current_setting('%s', true)", SettingTenantID)
	write := fmt.Sprintf(
		"tenant_id IS NOT NULL AND tenant_id::text = current_setting('%s', true)", SettingTenantID)
	bypass := fmt.Sprintf(
		"current_setting('%s', true) = 'on'", SettingBypass)

	stmts := enableRLSDDL(table)
	stmts = append(stmts,
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)",
			table, read, write),
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_bypass ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_bypass ON %s USING (%s) WITH CHECK (%s)",
			table, bypass, bypass),
	)
	return stmts
}

// inheritedPolicyDDL builds the policy statements for an association table
// without its own tenant_id column. Ownership is expressed as an existence
// check against the owning table.
func inheritedPolicyDDL(table, ownerTable, fkColumn string) []string {
	isolation := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s o WHERE o.id = %s.%s AND o.tenant_id::text = current_setting('%s', true))",
		ownerTable, table, fkColumn, SettingTenantID)
	bypass := fmt.Sprintf(
		"current_setting('%s', true) = 'on'", SettingBypass)

	stmts := enableRLSDDL(table)
	stmts = append(stmts,
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)",
			table, isolation, isolation),
		fmt.Sprintf("DROP POLICY IF EXISTS tenant_bypass ON %s", table),
		fmt.Sprintf("CREATE POLICY tenant_bypass ON %s USING (%s) WITH CHECK (%s)",
			table, bypass, bypass),
	)
	return stmts
}

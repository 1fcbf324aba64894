package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"gorm.io/gorm"
)

// Permission codes, "<module>:<action>". The tenants module is reserved for
// system roles.
const (
	PermTenantsCreate = "tenants:create"
	PermTenantsRead   = "tenants:read"
	PermTenantsUpdate = "tenants:update"
	PermTenantsDelete = "tenants:delete"
	PermTenantsBypass = "tenants:bypass"

	PermCoursesCreate  = "courses:create"
	PermCoursesRead    = "courses:read"
	PermCoursesUpdate  = "courses:update"
	PermCoursesDelete  = "courses:delete"
	PermCoursesPublish = "courses:publish"

	PermSessionsCreate = "sessions:create"
	PermSessionsRead   = "sessions:read"
	PermSessionsUpdate = "sessions:update"
	PermSessionsDelete = "sessions:delete"

	PermUsersCreate = "users:create"
	PermUsersRead   = "users:read"
	PermUsersUpdate = "users:update"
	PermUsersDelete = "users:delete"

	PermRolesCreate = "roles:create"
	PermRolesRead   = "roles:read"
	PermRolesGrant  = "roles:grant"

	PermEnrollmentsCreate = "enrollments:create"
	PermEnrollmentsRead   = "enrollments:read"
	PermEnrollmentsUpdate = "enrollments:update"

	PermReportsView = "reports:view"
)

type catalogEntry struct {
	code        string
	description string
}

// permissionCatalog is the full catalog seeded at bootstrap. SUPER_ADMIN is
// granted every entry, which is what makes it allowed everywhere: the
// decision point itself never special-cases the role.
var permissionCatalog = []catalogEntry{
	{PermTenantsCreate, "Provision a new tenant"},
	{PermTenantsRead, "Read tenant records across tenants"},
	{PermTenantsUpdate, "Update tenant plan, status and quotas"},
	{PermTenantsDelete, "Soft-delete a tenant"},
	{PermTenantsBypass, "Cross tenant isolation boundaries"},
	{PermCoursesCreate, "Create courses"},
	{PermCoursesRead, "Read courses"},
	{PermCoursesUpdate, "Update courses"},
	{PermCoursesDelete, "Soft-delete courses"},
	{PermCoursesPublish, "Publish courses"},
	{PermSessionsCreate, "Schedule course sessions"},
	{PermSessionsRead, "Read course sessions"},
	{PermSessionsUpdate, "Update course sessions"},
	{PermSessionsDelete, "Cancel course sessions"},
	{PermUsersCreate, "Create users"},
	{PermUsersRead, "Read users"},
	{PermUsersUpdate, "Update users"},
	{PermUsersDelete, "Deactivate users"},
	{PermRolesCreate, "Create tenant roles"},
	{PermRolesRead, "Read roles"},
	{PermRolesGrant, "Grant permissions to tenant roles"},
	{PermEnrollmentsCreate, "Enroll students"},
	{PermEnrollmentsRead, "Read enrollments"},
	{PermEnrollmentsUpdate, "Update enrollments"},
	{PermReportsView, "View reports"},
}

// tenantAdminGrants is the template grant set cloned onto every tenant's
// TENANT_ADMIN role at provisioning. Deliberately excludes the tenants
// module.
var tenantAdminGrants = []string{
	PermCoursesCreate, PermCoursesRead, PermCoursesUpdate, PermCoursesDelete, PermCoursesPublish,
	PermSessionsCreate, PermSessionsRead, PermSessionsUpdate, PermSessionsDelete,
	PermUsersCreate, PermUsersRead, PermUsersUpdate, PermUsersDelete,
	PermRolesCreate, PermRolesRead, PermRolesGrant,
	PermEnrollmentsCreate, PermEnrollmentsRead, PermEnrollmentsUpdate,
	PermReportsView,
}

var instructorGrants = []string{
	PermCoursesCreate, PermCoursesRead, PermCoursesUpdate, PermCoursesPublish,
	PermSessionsCreate, PermSessionsRead, PermSessionsUpdate,
	PermEnrollmentsCreate, PermEnrollmentsRead, PermEnrollmentsUpdate,
}

// defaultPlans is the subscription plan catalog.
var defaultPlans = []model.SubscriptionPlan{
	{Code: model.PlanStarter, Name: "Starter", MaxUsers: 25, MaxCourses: 10, MaxStudents: 250},
	{Code: model.PlanProfessional, Name: "Professional", MaxUsers: 100, MaxCourses: 50, MaxStudents: 2000},
	{Code: model.PlanEnterprise, Name: "Enterprise", MaxUsers: 1000, MaxCourses: 500, MaxStudents: 50000},
}

// Bootstrap seeds the permission catalog, the subscription plan catalog and
// the system roles. Idempotent: reruns update nothing that already exists.
func Bootstrap(ctx context.Context, db *gorm.DB) error {
	tx, release, err := database.SystemSession(ctx, db)
	if err != nil {
		return err
	}
	err = bootstrap(tx)
	if rerr := release(err); rerr != nil && err == nil {
		return rerr
	}
	return err
}

func bootstrap(tx *gorm.DB) error {
	for _, entry := range permissionCatalog {
		perm := model.Permission{
			Code:        entry.code,
			Module:      model.PermissionModule(entry.code),
			Description: entry.description,
		}
		if err := tx.Where(model.Permission{Code: entry.code}).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seeding permission %s: %w", entry.code, err)
		}
	}

	for _, plan := range defaultPlans {
		p := plan
		if err := tx.Where(model.SubscriptionPlan{Code: plan.Code}).
			FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seeding plan %s: %w", plan.Code, err)
		}
	}

	allCodes := make([]string, 0, len(permissionCatalog))
	for _, entry := range permissionCatalog {
		allCodes = append(allCodes, entry.code)
	}

	// SUPER_ADMIN is bootstrapped with the full catalog. Its cross-tenant
	// power flows entirely from the granted set (tenants:bypass included),
	// never from its name.
	if err := ensureSystemRole(tx, model.RoleSuperAdmin, "Super Administrator", allCodes); err != nil {
		return err
	}
	// TENANT_ADMIN exists as a system-level template; provisioning clones it
	// per tenant.
	if err := ensureSystemRole(tx, model.RoleTenantAdmin, "Tenant Administrator", nil); err != nil {
		return err
	}

	return nil
}

func ensureSystemRole(tx *gorm.DB, code, name string, grants []string) error {
	role := model.Role{
		Code:     code,
		Name:     name,
		IsSystem: true,
		Active:   true,
	}
	if err := tx.Where("code = ? AND tenant_id IS NULL", code).
		FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("seeding role %s: %w", code, err)
	}
	// Seeding runs before any principal exists, so it grants below the
	// caller checks in GrantPermission.
	for _, permCode := range grants {
		if err := grant(tx, &role, permCode); err != nil {
			return fmt.Errorf("granting %s to %s: %w", permCode, code, err)
		}
	}
	return nil
}

// ErrReservedPermission is returned when a tenant-scoped role is granted a
// permission from the reserved tenant-management module.
var ErrReservedPermission = fmt.Errorf("permissions in module %q are reserved for system roles", model.PermissionModuleTenants)

// ErrSystemRoleImmutable is returned when a non-bypass caller tries to change
// the grants of a system role. System role grants are global authorization
// state and may only move under an active bypass principal.
var ErrSystemRoleImmutable = errors.New("system role grants require a bypass principal")

// GrantPermission associates a permission with a role. Two guards run before
// any storage access: tenant-scoped roles are refused any permission in the
// tenants module, and system roles (nil tenant) are refused changes unless
// the session principal carries bypass. Together they are the authoritative
// guard behind the invariant that tenant administrators can never manage or
// bypass tenants.
func GrantPermission(tx *gorm.DB, role *model.Role, permCode string) error {
	if role.TenantID != nil && model.PermissionModule(permCode) == model.PermissionModuleTenants {
		return ErrReservedPermission
	}
	if role.TenantID == nil && !principal.BypassFromContext(tx.Statement.Context) {
		return ErrSystemRoleImmutable
	}
	return grant(tx, role, permCode)
}

func grant(tx *gorm.DB, role *model.Role, permCode string) error {
	var perm model.Permission
	if err := tx.Where("code = ?", permCode).First(&perm).Error; err != nil {
		return fmt.Errorf("permission %s: %w", permCode, err)
	}
	return tx.Model(role).Association("Permissions").Append(&perm)
}

// ProvisionTenantAdminRole creates the per-tenant TENANT_ADMIN role with the
// template grant set. Called during tenant provisioning.
func ProvisionTenantAdminRole(tx *gorm.DB, tenantID uint) (*model.Role, error) {
	role := model.Role{
		TenantID: &tenantID,
		Code:     model.RoleTenantAdmin,
		Name:     "Tenant Administrator",
		Active:   true,
	}
	if err := tx.Where("code = ? AND tenant_id = ?", model.RoleTenantAdmin, tenantID).
		FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	for _, permCode := range tenantAdminGrants {
		if err := GrantPermission(tx, &role, permCode); err != nil {
			return nil, err
		}
	}
	return &role, nil
}

// ProvisionInstructorRole creates the per-tenant INSTRUCTOR role.
func ProvisionInstructorRole(tx *gorm.DB, tenantID uint) (*model.Role, error) {
	role := model.Role{
		TenantID: &tenantID,
		Code:     model.RoleInstructor,
		Name:     "Instructor",
		Active:   true,
	}
	if err := tx.Where("code = ? AND tenant_id = ?", model.RoleInstructor, tenantID).
		FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	for _, permCode := range instructorGrants {
		if err := GrantPermission(tx, &role, permCode); err != nil {
			return nil, err
		}
	}
	return &role, nil
}

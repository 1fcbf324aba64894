package database

import (
	"github.com/suteetoe/learnhub/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IsolationGuard is a gorm plugin that refuses to run statements against
// tenant-scoped tables on a session that never went through the binder.
// Without it, a handler reaching for the raw connection pool would run with no
// session settings bound and the row-level policies would silently filter
// everything; the guard turns that misconfiguration into a hard
// ErrTenantContextUnbound instead.
type IsolationGuard struct {
	scoped map[string]struct{}
}

// NewIsolationGuard builds a guard watching every table protected by a
// row-level policy.
func NewIsolationGuard() *IsolationGuard {
	scoped := map[string]struct{}{
		"users":            {},
		"roles":            {},
		"enrollments":      {},
		"user_roles":       {},
		"role_permissions": {},
	}
	for _, t := range tenantScopedTables {
		scoped[t] = struct{}{}
	}
	return &IsolationGuard{scoped: scoped}
}

// Name implements gorm.Plugin.
func (g *IsolationGuard) Name() string {
	return "learnhub:isolation_guard"
}

// Initialize implements gorm.Plugin, hooking the check in front of every
// statement kind.
func (g *IsolationGuard) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register(g.Name()+":query", g.check); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:create").Register(g.Name()+":create", g.check); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register(g.Name()+":update", g.check); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register(g.Name()+":delete", g.check); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register(g.Name()+":row", g.check); err != nil {
		return err
	}
	return nil
}

func (g *IsolationGuard) check(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	if SessionBound(db.Statement.Context) {
		return
	}

	table := db.Statement.Table
	if table == "" && db.Statement.Model != nil {
		if err := db.Statement.Parse(db.Statement.Model); err == nil {
			table = db.Statement.Table
		}
	}

	if _, protected := g.scoped[table]; protected {
		logger.FromContext(db.Statement.Context).Error(
			"tenant-scoped query on unbound session",
			zap.String("table", table))
		_ = db.AddError(ErrTenantContextUnbound)
	}
}

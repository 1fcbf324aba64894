package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suteetoe/learnhub/internal/principal"
	"gorm.io/gorm"
)

func txWithContext(ctx context.Context) *gorm.DB {
	return &gorm.DB{Statement: &gorm.Statement{Context: ctx}}
}

func scopedContext(tenantID uint, bypass bool) context.Context {
	p := &principal.Principal{UserID: 1, Bypass: bypass}
	if tenantID != 0 {
		p.TenantID = &tenantID
	}
	return principal.NewContext(context.Background(), p)
}

func TestBeforeSaveRejectsMissingTenantID(t *testing.T) {
	course := &Course{Title: "Intro to Go"}

	err := course.BeforeSave(txWithContext(scopedContext(42, false)))
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func TestBeforeSaveAcceptsMatchingTenant(t *testing.T) {
	course := &Course{
		TenantModel: TenantModel{TenantID: 42},
		Title:       "Intro to Go",
	}

	err := course.BeforeSave(txWithContext(scopedContext(42, false)))
	assert.NoError(t, err)
}

// A disagreement between the entity's tenant id and the bound scope is a
// programming error and must fail loudly, never be corrected silently.
func TestBeforeSaveRejectsMismatchedTenant(t *testing.T) {
	course := &Course{
		TenantModel: TenantModel{TenantID: 42},
		Title:       "Intro to Go",
	}

	err := course.BeforeSave(txWithContext(scopedContext(99, false)))
	assert.ErrorIs(t, err, ErrTenantMismatch)
	// The entity's tenant id is untouched.
	assert.Equal(t, uint(42), course.TenantID)
}

func TestBeforeSaveBypassAllowsForeignTenant(t *testing.T) {
	course := &Course{
		TenantModel: TenantModel{TenantID: 42},
		Title:       "Intro to Go",
	}

	err := course.BeforeSave(txWithContext(scopedContext(0, true)))
	assert.NoError(t, err)
}

// Even under bypass a row must carry some tenant id: bypass widens
// visibility, it does not exempt rows from ownership.
func TestBeforeSaveBypassStillRequiresTenantID(t *testing.T) {
	course := &Course{Title: "Intro to Go"}

	err := course.BeforeSave(txWithContext(scopedContext(0, true)))
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func TestBeforeSaveNoScope(t *testing.T) {
	// Without any bound scope the hook can only check presence; the session
	// binder and row-level policies own the rest.
	session := &CourseSession{
		TenantModel: TenantModel{TenantID: 42},
		Name:        "Spring cohort",
	}

	err := session.BeforeSave(txWithContext(context.Background()))
	assert.NoError(t, err)
}

package principal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	tenantID := uint(42)
	p := &Principal{
		UserID:   7,
		Email:    "alice@acme.test",
		TenantID: &tenantID,
		Roles:    []string{"TENANT_ADMIN"},
	}

	ctx := NewContext(context.Background(), p)

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, p, got)

	tid := TenantIDFromContext(ctx)
	require.NotNil(t, tid)
	assert.Equal(t, uint(42), *tid)
	assert.False(t, BypassFromContext(ctx))
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, FromContext(ctx))
	assert.Nil(t, TenantIDFromContext(ctx))
	assert.False(t, BypassFromContext(ctx))
}

func TestBypassPrincipal(t *testing.T) {
	p := &Principal{UserID: 1, Bypass: true}
	ctx := NewContext(context.Background(), p)

	assert.Nil(t, TenantIDFromContext(ctx))
	assert.True(t, BypassFromContext(ctx))
}

// Concurrent requests share the process but each carries its own context;
// none may ever observe another's tenant id.
func TestConcurrentScopeIsolation(t *testing.T) {
	const workers = 64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n uint) {
			defer wg.Done()

			tenantID := n
			ctx := NewContext(context.Background(), &Principal{
				UserID:   n,
				Email:    fmt.Sprintf("user%d@test", n),
				TenantID: &tenantID,
			})

			for j := 0; j < 100; j++ {
				got := TenantIDFromContext(ctx)
				if got == nil || *got != n {
					t.Errorf("scope leaked: want tenant %d, got %v", n, got)
					return
				}
			}
		}(uint(i + 1))
	}
	wg.Wait()
}

func TestHasPermission(t *testing.T) {
	p := &Principal{
		Permissions: map[string]struct{}{
			"courses:read":    {},
			"courses:publish": {},
		},
	}

	assert.True(t, p.HasPermission("courses:publish"))
	assert.False(t, p.HasPermission("tenants:delete"))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasPermission("courses:read"))
}

func TestHasRole(t *testing.T) {
	p := &Principal{Roles: []string{"TENANT_ADMIN", "INSTRUCTOR"}}

	assert.True(t, p.HasRole("INSTRUCTOR"))
	assert.False(t, p.HasRole("SUPER_ADMIN"))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasRole("TENANT_ADMIN"))
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/returns-service/internal/domain"
)

func TestStore_SeedDemo(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	data, err := store.SeedDemo(ctx)
	require.NoError(t, err)

	assert.Equal(t, DemoTenantID, data.Tenant.ID)
	require.Len(t, data.Products, 2)
	require.Len(t, data.Users, 3)

	roles := map[domain.Role]domain.User{}
	for _, user := range data.Users {
		assert.NotEmpty(t, user.ID)
		roles[user.Role] = user
	}
	require.Contains(t, roles, domain.RoleClient)
	require.NotNil(t, roles[domain.RoleClient].TenantID)
	assert.Equal(t, DemoTenantID, *roles[domain.RoleClient].TenantID)
	assert.Contains(t, roles, domain.RoleStaff)
	assert.Contains(t, roles, domain.RoleAdmin)

	product, err := store.Products().GetByID(ctx, data.Products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Impact drill", product.Name)

	found, err := store.Users().GetByEmail(ctx, "CLIENT@acme.test")
	require.NoError(t, err)
	assert.Equal(t, roles[domain.RoleClient].ID, found.ID)
}

func TestStore_SeedDemoTwiceKeepsUsers(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first, err := store.SeedDemo(ctx)
	require.NoError(t, err)
	second, err := store.SeedDemo(ctx)
	require.NoError(t, err)

	require.Len(t, second.Users, len(first.Users))
	for i := range first.Users {
		assert.Equal(t, first.Users[i].ID, second.Users[i].ID)
	}
}

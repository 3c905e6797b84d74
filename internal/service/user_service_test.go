package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/model"
)

func TestUserService_Ensure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.Users.Ensure(ctx, Identity{AuthUID: "uid-1", Email: " Ann@Example.com ", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, 30, u.AIUsageLimit)
	assert.Equal(t, model.TierFree, u.SubscriptionTier)

	again, err := f.Users.Ensure(ctx, Identity{AuthUID: "uid-1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	require.NotNil(t, again.Name)
	assert.Equal(t, "Ann", *again.Name, "empty fields never overwrite")

	relinked, err := f.Users.Ensure(ctx, Identity{AuthUID: "uid-2", Email: "ann@example.com", Image: "https://img.test/a.png"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, relinked.ID)

	stored, err := f.Users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "uid-2", stored.AuthUID)
	require.NotNil(t, stored.Image)
	assert.Equal(t, "https://img.test/a.png", *stored.Image)

	anon, err := f.Users.Ensure(ctx, Identity{AuthUID: "uid-3"})
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, anon.ID)
	assert.NotEmpty(t, anon.Email)

	_, err = f.Users.Ensure(ctx, Identity{})
	require.Error(t, err)

	_, err = f.Users.Get(ctx, 9999)
	requireKind(t, err, apperr.KindNotFound)
}

package services_test

import (
	"context"
	"testing"

	"github.com/CUknot/chat_backend/models"
	"github.com/CUknot/chat_backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_RegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Register(ctx, " alice ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.NotEqual(t, "password123", u.Password)

	got, err := env.users.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = env.users.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestUsers_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Register(ctx, "", "password123")
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = env.users.Register(ctx, "bob", "123")
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = env.users.Register(ctx, "bob", "password123")
	require.NoError(t, err)
	_, err = env.users.Register(ctx, "bob", "another-password")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUsers_Get(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "alice")

	got, err := env.users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	_, err = env.users.Get(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

package database

import (
	"path/filepath"
	"testing"

	"github.com/CUknot/chat_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")

	db, err := Connect(sqlitePrefix + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))

	for _, model := range []any{&models.User{}, &models.Room{}, &models.Membership{}, &models.Message{}} {
		assert.True(t, db.Migrator().HasTable(model), "table for %T should exist", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Membership{}, "idx_membership_room_user"))
}

func TestMembershipUniqueness(t *testing.T) {
	db, err := Connect(sqlitePrefix + filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.Membership{RoomID: 1, UserID: 1}).Error)
	assert.Error(t, db.Create(&models.Membership{RoomID: 1, UserID: 1}).Error)
}

package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/CUknot/chat_backend/cache"
	"github.com/CUknot/chat_backend/cache/cachetest"
	"github.com/CUknot/chat_backend/database"
	"github.com/CUknot/chat_backend/models"
	"github.com/CUknot/chat_backend/services"
	"github.com/CUknot/chat_backend/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	backend  *cachetest.MemoryBackend
	gateway  *storage.DiskGateway
	ledger   *services.Ledger
	messages *services.MessageStore
	users    *services.Users
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect("sqlite://" + filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))

	backend := cachetest.NewMemoryBackend()
	c := cache.New(backend, cache.Config{Prefix: "test:", TTL: time.Minute})
	gateway := storage.NewDiskGatewayFs(afero.NewMemMapFs(), "http://chat.test", "test-secret")
	require.NoError(t, gateway.EnsureContainer(context.Background()))

	return &testEnv{
		db:       db,
		backend:  backend,
		gateway:  gateway,
		ledger:   services.NewLedger(db, c, time.Second),
		messages: services.NewMessageStore(db, c, gateway, time.Second),
		users:    services.NewUsers(db, time.Second),
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), name, "password123")
	require.NoError(t, err)
	return u
}

func (e *testEnv) room(t *testing.T, owner *models.User, name string, public bool) *models.Room {
	t.Helper()
	r, err := e.ledger.CreateRoom(context.Background(), owner.ID, name, public)
	require.NoError(t, err)
	return r
}

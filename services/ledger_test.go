package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/CUknot/chat_backend/cache"
	"github.com/CUknot/chat_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberIDs(ms []models.Membership) []uint {
	ids := make([]uint, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	return ids
}

func TestLedger_CreateRoomMakesOwnerMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")

	room := env.room(t, alice, "general", true)
	assert.NotZero(t, room.ID)
	assert.Equal(t, alice.ID, room.OwnerID)

	members, err := env.ledger.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, memberIDs(members))
	require.NotNil(t, members[0].User)
	assert.Equal(t, "alice", members[0].User.Name)
}

func TestLedger_CreateRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")

	_, err := env.ledger.CreateRoom(ctx, alice.ID, "   ", true)
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = env.ledger.CreateRoom(ctx, 999, "ghost town", true)
	assert.ErrorIs(t, err, models.ErrNotFound)

	var n int64
	require.NoError(t, env.db.Model(&models.Room{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLedger_AddMemberIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	room := env.room(t, alice, "general", true)

	added, err := env.ledger.AddMember(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = env.ledger.AddMember(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, added)

	members, err := env.ledger.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID}, memberIDs(members))
}

// SQLite runs on a single connection here, so these calls are serialized;
// TestLedger_AddMemberExistingRowIsNoop covers the conflicting insert itself.
func TestLedger_ConcurrentAddMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	room := env.room(t, alice, "general", true)

	var wg sync.WaitGroup
	var inserted atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := env.ledger.AddMember(ctx, room.ID, bob.ID)
			assert.NoError(t, err)
			if added {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inserted.Load())
	members, err := env.ledger.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID}, memberIDs(members))
}

func TestLedger_AddMemberUnknownEntities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	room := env.room(t, alice, "general", true)

	_, err := env.ledger.AddMember(ctx, 404, alice.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.ledger.AddMember(ctx, room.ID, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.ledger.ListMembers(ctx, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLedger_RoomDetailSeesNewMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	room := env.room(t, alice, "general", true)

	detail, err := env.ledger.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, memberIDs(detail.Members))
	assert.True(t, env.backend.Has("test:"+cache.RoomDetailKey(room.ID)))

	_, err = env.ledger.AddMember(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, env.backend.Has("test:"+cache.RoomDetailKey(room.ID)))

	detail, err = env.ledger.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID}, memberIDs(detail.Members))
	require.NotNil(t, detail.Room.Owner)
	assert.Equal(t, "alice", detail.Room.Owner.Name)
}

func TestLedger_GetRoomMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ledger.GetRoom(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, env.backend.Has("test:"+cache.RoomDetailKey(404)))
}

func TestLedger_CanRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	public := env.room(t, alice, "lobby", true)
	private := env.room(t, alice, "secret", false)

	assert.NoError(t, env.ledger.CanRead(ctx, public.ID, bob.ID))
	assert.NoError(t, env.ledger.CanRead(ctx, private.ID, alice.ID))
	assert.ErrorIs(t, env.ledger.CanRead(ctx, private.ID, bob.ID), models.ErrForbidden)
	assert.ErrorIs(t, env.ledger.CanRead(ctx, 404, bob.ID), models.ErrNotFound)

	_, err := env.ledger.AddMember(ctx, private.ID, bob.ID)
	require.NoError(t, err)
	assert.NoError(t, env.ledger.CanRead(ctx, private.ID, bob.ID))
}

func TestLedger_JoinAndInvitePolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob, carol := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "carol")
	public := env.room(t, alice, "lobby", true)
	private := env.room(t, alice, "secret", false)

	added, err := env.ledger.JoinPublic(ctx, public.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, added)

	_, err = env.ledger.JoinPublic(ctx, private.ID, bob.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.ledger.AddMemberAs(ctx, private.ID, bob.ID, carol.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	added, err = env.ledger.AddMemberAs(ctx, private.ID, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestLedger_ListRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	lobby := env.room(t, alice, "lobby", true)
	secret := env.room(t, alice, "secret", false)
	random := env.room(t, bob, "random", true)

	rooms, err := env.ledger.ListRoomsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, secret.ID, rooms[0].ID)
	assert.Equal(t, lobby.ID, rooms[1].ID)

	public, err := env.ledger.ListPublicRooms(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, lobby.ID, public[0].ID)
	assert.Equal(t, random.ID, public[1].ID)
}

func TestLedger_AddMemberExistingRowIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	room := env.room(t, alice, "general", true)

	// A concurrent writer committed the same membership first.
	require.NoError(t, env.db.Create(&models.Membership{RoomID: room.ID, UserID: bob.ID}).Error)

	added, err := env.ledger.AddMember(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, added)

	var count int64
	require.NoError(t, env.db.Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", room.ID, bob.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

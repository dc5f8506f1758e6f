package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/cache"
	"github.com/CUknot/chat_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger tracks which users belong to which rooms.
type Ledger struct {
	db      *gorm.DB
	cache   *cache.Cache
	timeout time.Duration
}

func NewLedger(db *gorm.DB, c *cache.Cache, timeout time.Duration) *Ledger {
	return &Ledger{db: db, cache: c, timeout: timeout}
}

// CreateRoom creates the room and the owner's membership in one transaction,
// so a room without members is never visible.
func (l *Ledger) CreateRoom(ctx context.Context, ownerID uint, name string, isPublic bool) (*models.Room, error) {
	const op = "ledger.CreateRoom"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Invalid(op, "room name is required")
	}

	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	room := &models.Room{Name: name, IsPublic: isPublic, OwnerID: ownerID}
	err := l.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, op, ownerID); err != nil {
			return err
		}
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{RoomID: room.ID, UserID: ownerID}).Error
	})
	if err != nil {
		return nil, dbError(op, err)
	}

	l.cache.Invalidate(afterCommit(ctx), cache.RoomDetailKey(room.ID))
	slog.Info("room created", "room_id", room.ID, "owner_id", ownerID, "public", isPublic)
	return room, nil
}

// AddMember is idempotent: adding a user who already belongs to the room
// succeeds and reports added=false. Concurrent calls for the same pair leave
// exactly one membership, enforced by the (room_id, user_id) unique index.
func (l *Ledger) AddMember(ctx context.Context, roomID, userID uint) (added bool, err error) {
	const op = "ledger.AddMember"
	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	err = l.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireRoom(tx, op, roomID); err != nil {
			return err
		}
		if _, err := requireUser(tx, op, userID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Membership{RoomID: roomID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, dbError(op, err)
	}

	if added {
		l.cache.Invalidate(afterCommit(ctx), cache.RoomDetailKey(roomID))
		slog.Info("member added", "room_id", roomID, "user_id", userID)
	}
	return added, nil
}

// JoinPublic adds userID to a public room on their own behalf.
func (l *Ledger) JoinPublic(ctx context.Context, roomID, userID uint) (bool, error) {
	const op = "ledger.JoinPublic"
	detail, err := l.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !detail.Room.IsPublic {
		return false, models.Forbidden(op, "room %d is private", roomID)
	}
	return l.AddMember(ctx, roomID, userID)
}

// AddMemberAs lets an existing member bring another user into the room.
func (l *Ledger) AddMemberAs(ctx context.Context, roomID, actorID, userID uint) (bool, error) {
	const op = "ledger.AddMemberAs"
	ok, err := l.IsMember(ctx, roomID, actorID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, models.Forbidden(op, "user %d is not a member of room %d", actorID, roomID)
	}
	return l.AddMember(ctx, roomID, userID)
}

// ListMembers returns the room's members in the order they joined.
func (l *Ledger) ListMembers(ctx context.Context, roomID uint) ([]models.Membership, error) {
	const op = "ledger.ListMembers"
	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	tx := l.db.WithContext(dbCtx)
	if _, err := requireRoom(tx, op, roomID); err != nil {
		return nil, dbError(op, err)
	}
	members, err := listMembers(tx, roomID)
	if err != nil {
		return nil, dbError(op, err)
	}
	return members, nil
}

func (l *Ledger) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	const op = "ledger.IsMember"
	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	ok, err := isMember(l.db.WithContext(dbCtx), roomID, userID)
	if err != nil {
		return false, dbError(op, err)
	}
	return ok, nil
}

// GetRoom returns the room-detail view, read through the cache.
func (l *Ledger) GetRoom(ctx context.Context, roomID uint) (*models.RoomDetail, error) {
	return cache.ReadThrough(ctx, l.cache, cache.RoomDetailKey(roomID), func(ctx context.Context) (*models.RoomDetail, error) {
		const op = "ledger.GetRoom"
		dbCtx, cancel := withTimeout(ctx, l.timeout)
		defer cancel()

		tx := l.db.WithContext(dbCtx)
		var room models.Room
		if err := tx.Preload("Owner").First(&room, roomID).Error; err != nil {
			return nil, dbError(op, err)
		}
		members, err := listMembers(tx, roomID)
		if err != nil {
			return nil, dbError(op, err)
		}
		return &models.RoomDetail{Room: room, Members: members}, nil
	})
}

// CanRead reports nil when userID may read the room's messages: anyone may
// read a public room, only members may read a private one.
func (l *Ledger) CanRead(ctx context.Context, roomID, userID uint) error {
	const op = "ledger.CanRead"
	detail, err := l.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if detail.Room.IsPublic {
		return nil
	}
	for _, m := range detail.Members {
		if m.UserID == userID {
			return nil
		}
	}
	return models.Forbidden(op, "user %d cannot read room %d", userID, roomID)
}

// ListRoomsForUser returns the rooms userID belongs to, most recently joined
// first.
func (l *Ledger) ListRoomsForUser(ctx context.Context, userID uint) ([]models.Room, error) {
	const op = "ledger.ListRoomsForUser"
	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	var rooms []models.Room
	err := l.db.WithContext(dbCtx).
		Select("rooms.*").
		Joins("JOIN memberships ON memberships.room_id = rooms.id AND memberships.user_id = ?", userID).
		Order("memberships.id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, dbError(op, err)
	}
	return rooms, nil
}

func (l *Ledger) ListPublicRooms(ctx context.Context) ([]models.Room, error) {
	const op = "ledger.ListPublicRooms"
	dbCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	var rooms []models.Room
	if err := l.db.WithContext(dbCtx).Where("is_public = ?", true).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, dbError(op, err)
	}
	return rooms, nil
}

func listMembers(tx *gorm.DB, roomID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := tx.Preload("User").
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

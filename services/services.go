// Package services holds the room/message consistency rules: the membership
// ledger, the message store and the user registry. Every write commits to the
// relational store before it invalidates the cache views it affects.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/CUknot/chat_backend/models"
	"gorm.io/gorm"
)

// DefaultTimeout bounds every relational call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// afterCommit detaches ctx from the caller's cancellation so invalidation
// still runs when the request is abandoned right after the commit.
func afterCommit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// dbError maps a gorm error onto the taxonomy in models. Errors that already
// carry a kind pass through unchanged.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *models.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewError(op, models.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.NewError(op, models.ErrConflict, err)
	}
	return models.Storage(op, err)
}

func requireRoom(tx *gorm.DB, op string, roomID uint) (*models.Room, error) {
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NotFound(op, "room %d", roomID)
		}
		return nil, err
	}
	return &room, nil
}

func requireUser(tx *gorm.DB, op string, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NotFound(op, "user %d", userID)
		}
		return nil, err
	}
	return &user, nil
}

func isMember(tx *gorm.DB, roomID, userID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&n).Error
	return n > 0, err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/cache"
	"github.com/CUknot/chat_backend/models"
	"github.com/CUknot/chat_backend/storage"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = cache.HeadWindow
)

// MessageStore appends to and pages through room message logs.
type MessageStore struct {
	db      *gorm.DB
	cache   *cache.Cache
	gateway storage.Gateway
	timeout time.Duration
	now     func() time.Time
}

func NewMessageStore(db *gorm.DB, c *cache.Cache, gateway storage.Gateway, timeout time.Duration) *MessageStore {
	return &MessageStore{
		db:      db,
		cache:   c,
		gateway: gateway,
		timeout: timeout,
		now:     time.Now,
	}
}

// PostMessage appends a message to roomID on behalf of authorID, who must be
// a member. attachmentKey, when set, must name an object already uploaded to
// this room.
func (s *MessageStore) PostMessage(ctx context.Context, roomID, authorID uint, content string, attachmentKey *string) (*models.Message, error) {
	const op = "messages.PostMessage"
	content = strings.TrimSpace(content)
	if attachmentKey != nil && *attachmentKey == "" {
		attachmentKey = nil
	}
	if content == "" && attachmentKey == nil {
		return nil, models.Invalid(op, "message needs content or an attachment")
	}

	var attachment *models.Attachment
	if attachmentKey != nil {
		prefix := fmt.Sprintf("rooms/%d/", roomID)
		if !strings.HasPrefix(*attachmentKey, prefix) {
			return nil, models.Invalid(op, "attachment %q does not belong to room %d", *attachmentKey, roomID)
		}
		stCtx, cancel := withTimeout(ctx, s.timeout)
		att, err := s.gateway.ReissueAccessURL(stCtx, *attachmentKey, 1)
		cancel()
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.Invalid(op, "attachment %q was never uploaded", *attachmentKey)
			}
			return nil, err
		}
		attachment = &att
	}

	dbCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	msg := &models.Message{
		RoomID:        roomID,
		UserID:        authorID,
		Content:       content,
		AttachmentKey: attachmentKey,
		// Postgres keeps microseconds; truncating keeps cursors built from
		// this value identical to those built from a re-read row.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	err := s.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireRoom(tx, op, roomID); err != nil {
			return err
		}
		ok, err := isMember(tx, roomID, authorID)
		if err != nil {
			return err
		}
		if !ok {
			return models.Forbidden(op, "user %d is not a member of room %d", authorID, roomID)
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		author, err := requireUser(tx, op, authorID)
		if err != nil {
			return err
		}
		msg.User = author
		return nil
	})
	if err != nil {
		return nil, dbError(op, err)
	}

	s.cache.Invalidate(afterCommit(ctx), cache.RoomMessagesKey(roomID))
	msg.Attachment = attachment
	slog.Debug("message posted", "room_id", roomID, "message_id", msg.ID, "user_id", authorID)
	return msg, nil
}

// ListMessages returns up to limit messages of roomID, newest first, that are
// strictly older than before (or the newest ones when before is nil).
// Access control is the caller's job; see Ledger.CanRead.
func (s *MessageStore) ListMessages(ctx context.Context, roomID uint, limit int, before *models.Cursor) (*models.MessagePage, error) {
	const op = "messages.ListMessages"
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	head, err := cache.ReadThrough(ctx, s.cache, cache.RoomMessagesKey(roomID), func(ctx context.Context) ([]models.Message, error) {
		dbCtx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		tx := s.db.WithContext(dbCtx)
		if _, err := requireRoom(tx, op, roomID); err != nil {
			return nil, dbError(op, err)
		}
		msgs, err := queryPage(tx, roomID, cache.HeadWindow, nil)
		if err != nil {
			return nil, dbError(op, err)
		}
		return msgs, nil
	})
	if err != nil {
		return nil, err
	}

	page, more, ok := windowPage(head, limit, before)
	if !ok {
		dbCtx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		rows, err := queryPage(s.db.WithContext(dbCtx), roomID, limit+1, before)
		if err != nil {
			return nil, dbError(op, err)
		}
		more = len(rows) > limit
		if more {
			rows = rows[:limit]
		}
		page = rows
	}

	out := &models.MessagePage{Messages: make([]models.Message, len(page))}
	// Copy: the head window may be shared with concurrent readers.
	copy(out.Messages, page)
	s.resolveAttachments(ctx, out.Messages)
	if more && len(out.Messages) > 0 {
		out.NextCursor = models.CursorOf(out.Messages[len(out.Messages)-1]).String()
	}
	return out, nil
}

// resolveAttachments issues URLs for the page under a single deadline. Once it
// passes, the remaining attachments are left unresolved.
func (s *MessageStore) resolveAttachments(ctx context.Context, msgs []models.Message) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	for i := range msgs {
		key := msgs[i].AttachmentKey
		if key == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			slog.Warn("attachment urls left unresolved", "room_id", msgs[i].RoomID, "from_message_id", msgs[i].ID, "error", err)
			return
		}
		att, err := s.gateway.ReissueAccessURL(ctx, *key, 1)
		if err != nil {
			slog.Warn("could not issue attachment url", "message_id", msgs[i].ID, "key", *key, "error", err)
			continue
		}
		msgs[i].Attachment = &att
	}
}

// windowPage serves a page from the cached head window. ok is false when the
// window cannot prove the page complete and the store must be queried.
func windowPage(window []models.Message, limit int, before *models.Cursor) (page []models.Message, more, ok bool) {
	complete := len(window) < cache.HeadWindow

	start := 0
	if before != nil {
		start = len(window)
		for i, m := range window {
			if before.Before(m) {
				start = i
				break
			}
		}
	}
	rest := window[start:]

	switch {
	case len(rest) > limit:
		return rest[:limit], true, true
	case complete:
		return rest, false, true
	default:
		return nil, false, false
	}
}

func queryPage(tx *gorm.DB, roomID uint, limit int, before *models.Cursor) ([]models.Message, error) {
	q := tx.Preload("User").Where("room_id = ?", roomID)
	if before != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", before.CreatedAt, before.CreatedAt, before.ID)
	}
	var msgs []models.Message
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

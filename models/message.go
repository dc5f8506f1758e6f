package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is append-only. AttachmentKey is the durable storage key; the
// access URL in Attachment is filled in per read and never stored.
type Message struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	RoomID        uint        `gorm:"not null;index:idx_message_room_created,priority:1" json:"room_id"`
	UserID        uint        `gorm:"not null" json:"user_id"`
	User          *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content       string      `gorm:"type:text;not null" json:"content"`
	AttachmentKey *string     `gorm:"size:512" json:"attachment_key,omitempty"`
	Attachment    *Attachment `gorm:"-" json:"attachment,omitempty"`
	CreatedAt     time.Time   `gorm:"not null;index:idx_message_room_created,priority:2" json:"created_at"`
}

// Cursor is a keyset position in a room's message log. A page requested
// "before" a cursor holds strictly older messages, so inserts at the head
// never shift it.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// CursorOf returns the cursor positioned at m.
func CursorOf(m Message) Cursor {
	return Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// Before reports whether m sorts strictly after c in descending order.
func (c Cursor) Before(m Message) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d_%d", c.CreatedAt.UnixNano(), c.ID)
}

// ParseCursor is the inverse of Cursor.String.
func ParseCursor(s string) (Cursor, error) {
	ts, id, ok := strings.Cut(s, "_")
	if !ok {
		return Cursor{}, fmt.Errorf("malformed cursor %q", s)
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor id: %w", err)
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: uint(n)}, nil
}

// MessagePage is one page of a room's log, newest first.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

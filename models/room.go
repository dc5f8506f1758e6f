package models

import (
	"time"
)

type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	IsPublic  bool      `gorm:"not null" json:"is_public"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Owner     *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links one user to one room. ID doubles as the join sequence,
// so ordering by it gives members in the order they joined.
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;uniqueIndex:idx_membership_room_user" json:"room_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_membership_room_user;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"joined_at"`
}

// RoomDetail is the room-detail view: the room plus its members in join order.
type RoomDetail struct {
	Room    Room         `json:"room"`
	Members []Membership `json:"members"`
}

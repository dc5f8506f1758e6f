package cache

import "fmt"

// HeadWindow is how many of a room's newest messages the message view holds.
const HeadWindow = 100

// RoomDetailKey names the room-detail view. Membership changes and room
// creation invalidate it.
func RoomDetailKey(roomID uint) string {
	return fmt.Sprintf("room:%d:detail", roomID)
}

// RoomMessagesKey names the message view of a room. New messages invalidate
// it.
func RoomMessagesKey(roomID uint) string {
	return fmt.Sprintf("room:%d:messages", roomID)
}

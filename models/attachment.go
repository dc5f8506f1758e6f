package models

import "time"

// Attachment is an uploaded object as seen by a client. Key is permanent;
// URL is a capability that stops working at ExpiresAt.
type Attachment struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

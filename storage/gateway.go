// Package storage is the object store gateway: it uploads attachment bytes
// under caller-chosen keys and hands out time-limited access URLs for them.
// Only keys are durable; URLs are derived on demand.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/models"
	"github.com/google/uuid"
)

// DefaultValidity is how long a URL returned by Store stays usable.
const DefaultValidity = time.Hour

// DefaultTimeout bounds each object store call when none is configured.
const DefaultTimeout = 5 * time.Second

// Gateway is implemented by every object store backend.
type Gateway interface {
	// EnsureContainer creates the backing bucket or directory if it does not
	// exist yet. It must succeed before any upload is accepted.
	EnsureContainer(ctx context.Context) error

	// Store uploads data under key, overwriting any previous object, and
	// returns a URL valid for DefaultValidity.
	Store(ctx context.Context, key string, data []byte) (models.Attachment, error)

	// ReissueAccessURL returns a fresh URL for an already stored key.
	// It fails with models.ErrNotFound when the key does not exist.
	ReissueAccessURL(ctx context.Context, key string, validityHours int) (models.Attachment, error)
}

// NewKey returns a collision-free key for a file uploaded to a room,
// keeping the original extension.
func NewKey(roomID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return fmt.Sprintf("rooms/%d/%s%s", roomID, uuid.NewString(), ext)
}

func validity(op string, validityHours int) (time.Duration, error) {
	if validityHours <= 0 {
		return 0, models.Invalid(op, "validity must be at least one hour, got %d", validityHours)
	}
	return time.Duration(validityHours) * time.Hour, nil
}

func validKey(op, key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return models.Invalid(op, "unsafe storage key %q", key)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

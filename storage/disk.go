package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/CUknot/chat_backend/models"
	"github.com/spf13/afero"
)

// UploadsRoute is where the static file boundary serves disk-backed objects.
const UploadsRoute = "/uploaded_files"

// DiskGateway keeps attachments on a local (or in-memory) filesystem and
// issues HMAC-signed URLs that the static file boundary checks before
// serving bytes.
type DiskGateway struct {
	fs      afero.Fs
	baseURL string
	secret  []byte
	now     func() time.Time
}

var _ Gateway = (*DiskGateway)(nil)

// NewDiskGateway roots the gateway at dir on the OS filesystem.
func NewDiskGateway(dir, baseURL, secret string) *DiskGateway {
	return NewDiskGatewayFs(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL, secret)
}

// NewDiskGatewayFs uses fsys as the container root.
func NewDiskGatewayFs(fsys afero.Fs, baseURL, secret string) *DiskGateway {
	return &DiskGateway{fs: fsys, baseURL: baseURL, secret: []byte(secret), now: time.Now}
}

func (g *DiskGateway) EnsureContainer(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.Storage("storage.EnsureContainer", err)
	}
	if err := g.fs.MkdirAll("/", 0o755); err != nil {
		return models.Storage("storage.EnsureContainer", err)
	}
	return nil
}

func (g *DiskGateway) Store(ctx context.Context, key string, data []byte) (models.Attachment, error) {
	const op = "storage.Store"
	if err := validKey(op, key); err != nil {
		return models.Attachment{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	if err := g.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	if err := afero.WriteFile(g.fs, key, data, 0o644); err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	return g.sign(key, DefaultValidity), nil
}

func (g *DiskGateway) ReissueAccessURL(ctx context.Context, key string, validityHours int) (models.Attachment, error) {
	const op = "storage.ReissueAccessURL"
	ttl, err := validity(op, validityHours)
	if err != nil {
		return models.Attachment{}, err
	}
	if err := validKey(op, key); err != nil {
		return models.Attachment{}, err
	}
	// Filesystem calls take no context; an already expired one still fails.
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	if _, err := g.fs.Stat(key); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Attachment{}, models.NotFound(op, "object %q", key)
		}
		return models.Attachment{}, models.Storage(op, err)
	}
	return g.sign(key, ttl), nil
}

// Open verifies a signed request for key and opens the object for reading.
// Expired or forged signatures fail with models.ErrForbidden.
func (g *DiskGateway) Open(key, expires, sig string) (afero.File, error) {
	const op = "storage.Open"
	if err := validKey(op, key); err != nil {
		return nil, err
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return nil, models.Forbidden(op, "malformed expiry")
	}
	want := g.signature(key, exp)
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(want, got) {
		return nil, models.Forbidden(op, "bad signature")
	}
	if g.now().Unix() > exp {
		return nil, models.Forbidden(op, "link expired")
	}
	f, err := g.fs.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NotFound(op, "object %q", key)
		}
		return nil, models.Storage(op, err)
	}
	return f, nil
}

func (g *DiskGateway) sign(key string, ttl time.Duration) models.Attachment {
	expiresAt := g.now().Add(ttl).UTC().Truncate(time.Second)
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expiresAt.Unix(), 10))
	q.Set("sig", hex.EncodeToString(g.signature(key, expiresAt.Unix())))
	return models.Attachment{
		Key:       key,
		URL:       g.baseURL + UploadsRoute + "/" + key + "?" + q.Encode(),
		ExpiresAt: expiresAt,
	}
}

func (g *DiskGateway) signature(key string, expires int64) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return mac.Sum(nil)
}

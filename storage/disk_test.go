package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/CUknot/chat_backend/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiskGateway(t *testing.T) (*DiskGateway, afero.Fs, *time.Time) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	g := NewDiskGatewayFs(memFs, "http://localhost:8080", "test-secret")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g.now = func() time.Time { return now }
	require.NoError(t, g.EnsureContainer(context.Background()))
	return g, memFs, &now
}

func queryOf(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

func TestDiskGateway_StoreAndReissue(t *testing.T) {
	g, memFs, now := newTestDiskGateway(t)
	ctx := context.Background()

	stored, err := g.Store(ctx, "k1", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "k1", stored.Key)
	assert.Equal(t, now.Add(time.Hour), stored.ExpiresAt)
	assert.True(t, strings.HasPrefix(stored.URL, "http://localhost:8080/uploaded_files/k1?"))

	content, err := afero.ReadFile(memFs, "k1")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	reissued, err := g.ReissueAccessURL(ctx, "k1", 2)
	require.NoError(t, err)
	assert.Equal(t, "k1", reissued.Key)
	assert.Equal(t, now.Add(2*time.Hour), reissued.ExpiresAt)
	assert.NotEqual(t, stored.URL, reissued.URL)
	assert.NotEqual(t, stored.ExpiresAt, reissued.ExpiresAt)
}

func TestDiskGateway_ReissueMissingKey(t *testing.T) {
	g, _, _ := newTestDiskGateway(t)

	_, err := g.ReissueAccessURL(context.Background(), "missing", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDiskGateway_StoreOverwrites(t *testing.T) {
	g, memFs, _ := newTestDiskGateway(t)
	ctx := context.Background()

	_, err := g.Store(ctx, "rooms/1/a.txt", []byte("first"))
	require.NoError(t, err)
	_, err = g.Store(ctx, "rooms/1/a.txt", []byte("second"))
	require.NoError(t, err)

	content, err := afero.ReadFile(memFs, "rooms/1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestDiskGateway_RejectsUnsafeKeys(t *testing.T) {
	g, _, _ := newTestDiskGateway(t)

	for _, key := range []string{"", "../etc/passwd", "/abs", `a\b`} {
		_, err := g.Store(context.Background(), key, []byte("x"))
		assert.ErrorIs(t, err, models.ErrInvalid, "key %q", key)
	}
}

func TestDiskGateway_Open(t *testing.T) {
	g, _, now := newTestDiskGateway(t)
	ctx := context.Background()

	att, err := g.Store(ctx, "rooms/7/pic.png", []byte("png-bytes"))
	require.NoError(t, err)
	q := queryOf(t, att.URL)

	t.Run("valid signature", func(t *testing.T) {
		f, err := g.Open("rooms/7/pic.png", q.Get("expires"), q.Get("sig"))
		require.NoError(t, err)
		defer f.Close()
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(b))
	})

	t.Run("forged signature", func(t *testing.T) {
		_, err := g.Open("rooms/7/pic.png", q.Get("expires"), strings.Repeat("00", 32))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("signature for another key", func(t *testing.T) {
		_, err := g.Open("rooms/7/other.png", q.Get("expires"), q.Get("sig"))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("expired", func(t *testing.T) {
		later := now.Add(2 * time.Hour)
		g.now = func() time.Time { return later }
		defer func() { g.now = func() time.Time { return *now } }()

		_, err := g.Open("rooms/7/pic.png", q.Get("expires"), q.Get("sig"))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestDiskGateway_ValidityMustBePositive(t *testing.T) {
	g, _, _ := newTestDiskGateway(t)
	_, err := g.Store(context.Background(), "k1", []byte("x"))
	require.NoError(t, err)

	_, err = g.ReissueAccessURL(context.Background(), "k1", 0)
	assert.ErrorIs(t, err, models.ErrInvalid)
}

func TestNewKey(t *testing.T) {
	a := NewKey(3, "Holiday Photo.JPG")
	b := NewKey(3, "Holiday Photo.JPG")

	assert.True(t, strings.HasPrefix(a, "rooms/3/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)
	assert.NoError(t, validKey("test", a))
}

func TestDiskGateway_ExpiredContextIsStorageError(t *testing.T) {
	g, _, _ := newTestDiskGateway(t)
	_, err := g.Store(context.Background(), "k1", []byte("hello"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err = g.Store(ctx, "k2", []byte("late"))
	assert.ErrorIs(t, err, models.ErrStorage)
	_, err = g.ReissueAccessURL(ctx, "k1", 1)
	assert.ErrorIs(t, err, models.ErrStorage)
}

package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectAPI is the subset of *minio.Client the gateway depends on.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Timeout bounds every call to the server. Zero means DefaultTimeout.
	Timeout time.Duration
}

// MinioGateway stores attachments in an S3-compatible bucket and issues
// presigned GET URLs.
type MinioGateway struct {
	client  objectAPI
	bucket  string
	timeout time.Duration
	now     func() time.Time
}

var _ Gateway = (*MinioGateway)(nil)

func NewMinioGateway(cfg MinioConfig) (*MinioGateway, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, models.Storage("storage.NewMinioGateway", err)
	}
	return newMinioGateway(cl, cfg.Bucket, cfg.Timeout), nil
}

func newMinioGateway(client objectAPI, bucket string, timeout time.Duration) *MinioGateway {
	return &MinioGateway{client: client, bucket: bucket, timeout: timeout, now: time.Now}
}

func (g *MinioGateway) EnsureContainer(ctx context.Context) error {
	const op = "storage.EnsureContainer"
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return models.Storage(op, err)
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		// Another instance may have created it between the two calls.
		if exists, errExists := g.client.BucketExists(ctx, g.bucket); errExists == nil && exists {
			return nil
		}
		return models.Storage(op, err)
	}
	return nil
}

func (g *MinioGateway) Store(ctx context.Context, key string, data []byte) (models.Attachment, error) {
	const op = "storage.Store"
	if err := validKey(op, key); err != nil {
		return models.Attachment{}, err
	}
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	return g.presign(ctx, op, key, DefaultValidity)
}

func (g *MinioGateway) ReissueAccessURL(ctx context.Context, key string, validityHours int) (models.Attachment, error) {
	const op = "storage.ReissueAccessURL"
	ttl, err := validity(op, validityHours)
	if err != nil {
		return models.Attachment{}, err
	}
	if err := validKey(op, key); err != nil {
		return models.Attachment{}, err
	}
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	// Presigning never contacts the server, so check existence first.
	if _, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return models.Attachment{}, models.NotFound(op, "object %q", key)
		}
		return models.Attachment{}, models.Storage(op, err)
	}
	return g.presign(ctx, op, key, ttl)
}

func (g *MinioGateway) presign(ctx context.Context, op, key string, ttl time.Duration) (models.Attachment, error) {
	issued := g.now()
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, ttl, nil)
	if err != nil {
		return models.Attachment{}, models.Storage(op, err)
	}
	return models.Attachment{
		Key:       key,
		URL:       u.String(),
		ExpiresAt: issued.Add(ttl).UTC(),
	}, nil
}

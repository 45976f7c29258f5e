package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/launchkit-dev/launchkit/internal/config"
)

// MinIO implements ObjectStore on minio-go
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates a client for the configured endpoint. It does not contact the server.
func NewMinIO(cfg config.StorageConfig) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIO{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the bucket uploads are written to
func (m *MinIO) Bucket() string {
	return m.bucket
}

// Put uploads an object to the bucket
func (m *MinIO) Put(ctx context.Context, obj Object) error {
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", obj.Key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL. The filename is sent back
// as the attachment name.
func (m *MinIO) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (*url.URL, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, params)
	if err != nil {
		return nil, fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u, nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (m *MinIO) Remove(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = m.bucket
	}
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// Ping checks the server is reachable and the bucket exists
func (m *MinIO) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to reach object storage: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketMissing, m.bucket)
	}
	return nil
}

package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// ErrObjectsDisabled is returned when no object store is configured.
var ErrObjectsDisabled = errors.New("object storage not configured")

// Objects stores message attachments in a private bucket. Downloads go
// through presigned URLs.
type Objects struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

// NewObjects connects to the object store and makes sure the bucket exists.
// An empty endpoint yields a disabled store.
func NewObjects(ctx context.Context, cfg config.ObjectsConfig, logger *zap.Logger) (*Objects, error) {
	if cfg.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT not provided; attachments disabled")
		return &Objects{}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created attachment bucket", zap.String("bucket", cfg.Bucket))
	}
	return &Objects{client: client, bucket: cfg.Bucket, presignTTL: cfg.PresignTTL()}, nil
}

// Enabled reports whether uploads are possible.
func (o *Objects) Enabled() bool {
	return o != nil && o.client != nil
}

// Put uploads an object under key.
func (o *Objects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !o.Enabled() {
		return ErrObjectsDisabled
	}
	_, err := o.client.PutObject(ctx, o.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Remove deletes an object. Used to undo uploads whose metadata write failed.
func (o *Objects) Remove(ctx context.Context, key string) error {
	if !o.Enabled() {
		return ErrObjectsDisabled
	}
	return o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{})
}

// PresignedURL returns a time-limited download link for key.
func (o *Objects) PresignedURL(ctx context.Context, key, fileName string) (string, error) {
	if !o.Enabled() {
		return "", ErrObjectsDisabled
	}
	params := make(url.Values)
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	u, err := o.client.PresignedGetObject(ctx, o.bucket, key, o.presignTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Ping checks that the bucket is reachable. A disabled store is healthy.
func (o *Objects) Ping(ctx context.Context) error {
	if !o.Enabled() {
		return nil
	}
	_, err := o.client.BucketExists(ctx, o.bucket)
	return err
}

// Package artifacts stores generated documents in S3 compatible object storage.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config describes the MinIO endpoint and bucket.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	SecretAccessKey string `mapstructure:"secret-access-key"`
	Bucket          string `mapstructure:"bucket"`
	Location        string `mapstructure:"location"`
	UseSSL          bool   `mapstructure:"use-ssl"`
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		missing = append(missing, "credentials")
	}
	if len(missing) > 0 {
		return fmt.Errorf("artifacts config is missing %s", strings.Join(missing, ", "))
	}
	if strings.Contains(c.Endpoint, "://") {
		return errors.New("artifacts endpoint must be host:port without a scheme")
	}
	return nil
}

// MinIO implements cv.ObjectStore on top of a single bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinIO connects and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg Config, logger *zap.Logger) (*MinIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.Bucket, logger: logger}
	if err := m.ensureBucket(ctx, cfg.Location); err != nil {
		return nil, err
	}

	logger.Info("object storage ready", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}

	m.logger.Info("creating bucket", zap.String("bucket", m.bucket))
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	m.logger.Debug("object uploaded", zap.String("object", name), zap.Int("size", len(data)))
	return nil
}

// PresignedURL returns a time limited download link.
func (m *MinIO) PresignedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, name, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", name, err)
	}
	return u.String(), nil
}

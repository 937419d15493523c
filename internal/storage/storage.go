package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"montage/internal/config"
	"montage/internal/services"
)

// Client is the durable storage surface the pipeline stages depend on.
// Implementations must be safe for concurrent use by multiple jobs.
type Client interface {
	PutFile(ctx context.Context, key, localPath, contentType string) error
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key, localPath string) error
}

// ObjectStore is the S3-compatible implementation of Client.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// New connects to the configured object storage endpoint.
func New(cfg config.Storage) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "", "endpoint is required", nil)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// PutFile uploads a local file to the given key.
func (s *ObjectStore) PutFile(ctx context.Context, key, localPath, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, opts); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "put", key, err)
	}
	return nil
}

// PutBytes uploads an in-memory payload to the given key.
func (s *ObjectStore) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	reader := bytes.NewReader(data)
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), opts); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "put", key, err)
	}
	return nil
}

// Download fetches an object into a local file.
func (s *ObjectStore) Download(ctx context.Context, key, localPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return services.Wrap(services.ErrNotFound, "storage", "get", key, err)
		}
		return services.Wrap(services.ErrTransient, "storage", "get", key, err)
	}
	return nil
}

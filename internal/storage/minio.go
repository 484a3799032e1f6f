package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/previewvault/backend/internal/common"
)

// MinioConfig holds MinIO connection settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

// minioStorage implements media storage on MinIO
type minioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStorage connects to MinIO and ensures the bucket exists
func NewMinioStorage(cfg MinioConfig) (*minioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &minioStorage{client: client, bucket: cfg.Bucket, publicURL: cfg.PublicURL}, nil
}

// Put uploads r as namespace/name and returns its public locator
func (m *minioStorage) Put(ctx context.Context, namespace, name string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectKey(namespace, name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: put object %s: %w", common.ErrStore, key, err)
	}
	return joinURL(m.publicURL, key), nil
}

// DeleteNamespace removes every object under the namespace prefix
func (m *minioStorage) DeleteNamespace(ctx context.Context, namespace string) error {
	if !isPlainName(namespace) {
		return fmt.Errorf("%w: %q", ErrInvalidName, namespace)
	}

	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    namespace + "/",
		Recursive: true,
	})

	var firstErr error
	for rmErr := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("delete object %s: %w", rmErr.ObjectName, rmErr.Err)
		}
	}
	return firstErr
}

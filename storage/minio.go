package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"dropfm/config"
	"dropfm/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobStore is the opaque content store tracks live in. The engine only ever
// uploads new objects and deletes objects by their public URL; it never reads
// blobs back for ordering decisions.
type BlobStore interface {
	// Upload stores an object and returns its public URL.
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object behind a public URL previously returned by
	// Upload. Deleting an unknown URL is an error the caller may ignore.
	Delete(ctx context.Context, url string) error
}

// MinioStore implements BlobStore on a MinIO bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string // base URL prefix objects are served under
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: strings.TrimSuffix(cfg.MinioPublicURL, "/"),
	}, nil
}

// Upload implements BlobStore.
func (s *MinioStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}

	return fmt.Sprintf("%s/%s", s.publicURL, objectName), nil
}

// Delete implements BlobStore.
func (s *MinioStore) Delete(ctx context.Context, url string) error {
	objectName, err := s.objectFromURL(url)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectName, err)
	}
	return nil
}

// objectFromURL maps a public URL back to the object name inside the bucket.
func (s *MinioStore) objectFromURL(url string) (string, error) {
	if !strings.HasPrefix(url, s.publicURL+"/") {
		return "", fmt.Errorf("url %q is not served from this blob store", url)
	}
	objectName := strings.TrimPrefix(url, s.publicURL+"/")
	if objectName == "" {
		return "", fmt.Errorf("url %q has no object path", url)
	}
	return objectName, nil
}

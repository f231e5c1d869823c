// Package storage provides object storage for uploaded paper documents.
//
// Uploaded PDFs are held in an S3-compatible store (MinIO in development).
// The database keeps only the storage path; this package owns reading and
// writing the bytes.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore provides access to the document store.
type ObjectStore interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get downloads the full object. The caller owns the returned bytes.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore implements ObjectStore for MinIO or any S3-compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// Compile-time interface verification.
var _ ObjectStore = (*MinioStore)(nil)

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(cfg Config) (*MinioStore, error) {
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

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Get downloads the full object into memory. Paper PDFs are bounded in
// practice by the upload size limit enforced at the HTTP layer.
func (m *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ObjectKey builds the storage path for an uploaded paper document:
// {paper_id}/{random}.pdf. The random component keeps repeated uploads for
// the same paper from overwriting each other.
func ObjectKey(paperID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.pdf", paperID, uuid.New())
}

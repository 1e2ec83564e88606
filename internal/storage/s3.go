// Package storage reads logo images from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/muandane/special-stack/teamlogos/internal/config"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Info is the metadata of a stored object.
type Info struct {
	ContentType  string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Object is a fully read object.
type Object struct {
	Info
	Data []byte
}

// Objects reads logo images by key.
type Objects interface {
	Bucket() string
	Get(ctx context.Context, key string) (Object, error)
	Stat(ctx context.Context, key string) (Info, error)
}

// MinioObjects serves objects from a single bucket through a MinIO client.
type MinioObjects struct {
	client *minio.Client
	bucket string
}

// NewMinioClient creates a MinIO client from the storage configuration.
func NewMinioClient(cfg config.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}
	return client, nil
}

// NewMinioObjects serves objects from bucket.
func NewMinioObjects(client *minio.Client, bucket string) *MinioObjects {
	return &MinioObjects{client: client, bucket: bucket}
}

func (s *MinioObjects) Bucket() string {
	return s.bucket
}

func (s *MinioObjects) Get(ctx context.Context, key string) (Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, mapError(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return Object{}, mapError(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return Object{}, fmt.Errorf("read object %s: %w", key, err)
	}
	return Object{Info: toInfo(info), Data: data}, nil
}

func (s *MinioObjects) Stat(ctx context.Context, key string) (Info, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Info{}, mapError(err)
	}
	return toInfo(info), nil
}

func toInfo(info minio.ObjectInfo) Info {
	return Info{
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}
}

func mapError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

var _ Objects = (*MinioObjects)(nil)

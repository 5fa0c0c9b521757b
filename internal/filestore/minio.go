package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

// minioAPI is the subset of *minio.Client used by MinIO, so tests can run without a server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucketName, objectName, opts)
}

var _ Store = (*MinIO)(nil)

// MinIO stores files as objects of a single bucket.
type MinIO struct {
	api    minioAPI
	bucket string
	log    *logger.Logger
}

// NewMinIO creates a MinIO store on top of a real client.
func NewMinIO(ctx context.Context, client *minio.Client, bucket string, log *logger.Logger) (*MinIO, error) {
	return newMinIOWithAPI(ctx, minioClientWrapper{c: client}, bucket, log)
}

func newMinIOWithAPI(ctx context.Context, api minioAPI, bucket string, log *logger.Logger) (*MinIO, error) {
	m := &MinIO{api: api, bucket: bucket, log: log.With("system", "filestore")}

	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	log.Info("file store ready", "backend", "minio", "bucket", bucket)
	return m, nil
}

func (m *MinIO) Store(ctx context.Context, field, originalName string, content io.Reader) (string, error) {
	name := GenerateName(field, originalName)
	info, err := m.api.PutObject(ctx, m.bucket, name, content, -1, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	m.log.Debug("file stored", "name", name, "bytes", info.Size)
	return name, nil
}

func (m *MinIO) Retrieve(ctx context.Context, name string) (io.ReadCloser, FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, FileInfo{}, err
	}
	stat, err := m.api.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, FileInfo{}, ErrNotFound
		}
		return nil, FileInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	obj, err := m.api.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, FileInfo{Name: name, Size: stat.Size}, nil
}

func (m *MinIO) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := m.api.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

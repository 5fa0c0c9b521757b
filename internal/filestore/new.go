package filestore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

// New creates the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.Storage, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMinIO:
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return NewMinIO(ctx, client, cfg.MinIO.Bucket, log)
	case config.BackendDisk:
		return NewDisk(cfg.UploadsDir, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

package port

import (
	"context"
	"io"
)

// ObjectStorage is implemented by the MinIO and GCS adapters.
type ObjectStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (url string, err error)
	Download(ctx context.Context, objectKey string, destPath string) error
	Delete(ctx context.Context, objectKey string) error
	URL(objectKey string) string
}

// Package gcs stores uploads in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicBase = "https://storage.googleapis.com"

type Storage struct {
	client *storage.Client
	bucket string
}

type StorageConfig struct {
	Bucket string
	// CredentialsFile is a service account key; empty uses application default credentials.
	CredentialsFile string
}

func NewStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

// Upload streams reader into the object. A failed copy cancels the writer so
// no partial object is committed.
func (s *Storage) Upload(ctx context.Context, objectKey string, reader io.Reader, _ int64, contentType string) (string, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(wctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, reader); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return s.URL(objectKey), nil
}

func (s *Storage) Download(ctx context.Context, objectKey string, destPath string) error {
	r, err := s.client.Bucket(s.bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("download %s: %w", objectKey, err)
	}
	defer r.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", objectKey, err)
	}
	return f.Close()
}

func (s *Storage) Delete(ctx context.Context, objectKey string) error {
	err := s.client.Bucket(s.bucket).Object(objectKey).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", objectKey, err)
	}
	return nil
}

func (s *Storage) URL(objectKey string) string {
	return PublicURL(s.bucket, objectKey)
}

// Ping checks bucket access; used by the health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

// PublicURL returns https://storage.googleapis.com/<bucket>/<key> with each
// key segment escaped.
func PublicURL(bucket, objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return publicBase + "/" + bucket + "/" + strings.Join(segments, "/")
}

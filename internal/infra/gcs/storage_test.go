package gcs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/websa-videos/videos/3/ab12cd34_run.mp4",
		PublicURL("websa-videos", "videos/3/ab12cd34_run.mp4"))
	assert.Equal(t,
		"https://storage.googleapis.com/websa-videos/videos/3/my%20run.mp4",
		PublicURL("websa-videos", "videos/3/my run.mp4"))
}

// Runs against fake-gcs-server or another emulator when STORAGE_EMULATOR_HOST
// is set and WEBSA_GCS_TEST_BUCKET names an existing bucket.
func TestStorageAgainstEmulator(t *testing.T) {
	bucket := os.Getenv("WEBSA_GCS_TEST_BUCKET")
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" || bucket == "" {
		t.Skip("STORAGE_EMULATOR_HOST and WEBSA_GCS_TEST_BUCKET not set")
	}
	ctx := context.Background()

	s, err := NewStorage(ctx, StorageConfig{Bucket: bucket})
	require.NoError(t, err)
	defer s.Close()

	url, err := s.Upload(ctx, "videos/1/clip.mp4", strings.NewReader("frames"), 6, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, PublicURL(bucket, "videos/1/clip.mp4"), url)

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, s.Download(ctx, "videos/1/clip.mp4", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(got))

	assert.Error(t, s.Download(ctx, "videos/1/missing.mp4", filepath.Join(t.TempDir(), "x")))

	require.NoError(t, s.Delete(ctx, "videos/1/clip.mp4"))
	assert.Error(t, s.Download(ctx, "videos/1/clip.mp4", filepath.Join(t.TempDir(), "gone")))
	require.NoError(t, s.Delete(ctx, "videos/1/clip.mp4"))

	broken := io.MultiReader(strings.NewReader("half"), iotest.ErrReader(errors.New("client went away")))
	_, err = s.Upload(ctx, "videos/1/partial.mp4", broken, 0, "video/mp4")
	require.Error(t, err)
	assert.Error(t, s.Download(ctx, "videos/1/partial.mp4", filepath.Join(t.TempDir(), "partial")))
}

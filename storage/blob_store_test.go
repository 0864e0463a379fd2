package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/config"
)

func TestFileBlobStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewFileBlobStore(root)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "shots", "job1/s1.json", []byte(`{}`), "application/json"))
	assert.FileExists(t, filepath.Join(root, "shots", "job1", "s1.json"))

	data, err := s.Get(ctx, "shots", "job1/s1.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), data)
}

func TestFileBlobStoreNotFound(t *testing.T) {
	s := NewFileBlobStore(t.TempDir())

	_, err := s.Get(context.Background(), "shots", "missing.json")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestFileBlobStoreStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s := NewFileBlobStore(root)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "shots", "../../escape.txt", []byte("x"), ""))
	assert.FileExists(t, filepath.Join(root, "shots", "escape.txt"))

	_, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Put(ctx, "../x", "a.txt", nil, ""))
	assert.Error(t, s.Put(ctx, "", "a.txt", nil, ""))
	_, err = s.Get(ctx, "shots", "/")
	assert.Error(t, err)
}

func TestNewBlobStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BlobBackend = "file"
	cfg.BlobRoot = t.TempDir()

	s, err := NewBlobStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileBlobStore{}, s)

	cfg.BlobBackend = "s3"
	_, err = NewBlobStore(cfg)
	assert.Error(t, err)
}

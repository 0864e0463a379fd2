package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"

	"videoSearch/config"
)

// ErrBlobNotFound 对象不存在
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore 按 bucket/key 读写对象
type BlobStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// NewBlobStore 按配置选择本地目录或 Supabase Storage
func NewBlobStore(cfg *config.Config) (BlobStore, error) {
	switch cfg.BlobBackend {
	case "", "file":
		return NewFileBlobStore(cfg.BlobRoot), nil
	case "supabase":
		return NewSupabaseBlobStore(cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// ---------------- Local directory ----------------

// FileBlobStore {root}/{bucket}/{key}
type FileBlobStore struct {
	root string
}

func NewFileBlobStore(root string) *FileBlobStore {
	return &FileBlobStore{root: root}
}

func (s *FileBlobStore) path(bucket, key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if bucket == "" || strings.Contains(bucket, "..") || clean == "/" {
		return "", fmt.Errorf("invalid blob path %s/%s", bucket, key)
	}
	return filepath.Join(s.root, bucket, clean), nil
}

func (s *FileBlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, bucket, key)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FileBlobStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	return os.WriteFile(p, data, 0644)
}

// ---------------- Supabase Storage ----------------

type SupabaseBlobStore struct {
	client *supa.Client
}

func NewSupabaseBlobStore(url, key string) (*SupabaseBlobStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &SupabaseBlobStore{client: client}, nil
}

func (s *SupabaseBlobStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := s.client.Storage.DownloadFile(bucket, key)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, bucket, key)
		}
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *SupabaseBlobStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.Storage.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

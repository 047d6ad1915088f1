// AngelaMos | 2026
// gcs.go

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage keeps avatars in a Cloud Storage bucket. The object name is the
// same relative path the local backend would use on disk.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSClient uses application default credentials when credsPath is empty.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

func NewGCSStorage(client *storage.Client, bucket string) *GCSStorage {
	return &GCSStorage{client: client, bucket: bucket}
}

func (s *GCSStorage) Put(
	ctx context.Context,
	name, contentType string,
	r io.Reader,
) error {
	// Cancelling the context is how a storage.Writer aborts an upload
	// without committing the object.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0

	if _, err := io.Copy(wc, r); err != nil {
		cancel()
		_ = wc.Close()
		return fmt.Errorf("upload object: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize object: %w", err)
	}

	return nil
}

func (s *GCSStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func (s *GCSStorage) Delete(ctx context.Context, name string) error {
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

var _ Storage = (*GCSStorage)(nil)

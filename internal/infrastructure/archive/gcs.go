package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore archives usage exports as objects in a GCS bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store on the given bucket. The client picks up
// ambient credentials (e.g. GOOGLE_APPLICATION_CREDENTIALS).
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Save writes the snapshot, replacing any previous object with the same
// name. GCS object writes are atomic: readers see the old object until
// the writer closes successfully.
func (s *GCSStore) Save(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write archive object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive object: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

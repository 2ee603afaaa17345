// internal/storage/storage.go
package storage

import (
	"context"
	"time"
)

// ObjectInfo is the metadata of one remote object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the S3-compatible operations the exporter and the
// history seeder need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

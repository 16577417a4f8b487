package imagestore

import (
	"context"
	"io"
	"time"
)

// Store persists image blobs under opaque refs.
type Store interface {
	// Store writes content under a fresh ref. Only the extension of originalName is kept.
	Store(ctx context.Context, content io.Reader, originalName string) (string, error)
	// Delete removes the blob behind ref. Empty and already-missing refs are not errors.
	Delete(ctx context.Context, ref string) error
	// Exists reports whether ref resolves to a stored blob.
	Exists(ctx context.Context, ref string) (bool, error)
	// Stat describes the blob behind ref; ok is false when it is missing.
	Stat(ctx context.Context, ref string) (info BlobInfo, ok bool, err error)
	// List returns every blob currently in the store.
	List(ctx context.Context) ([]BlobInfo, error)
}

type BlobInfo struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

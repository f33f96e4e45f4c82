package storage

import (
	"context"
	"io"
)

// FileStore abstracts where uploaded submission and material files live.
// Remove is best-effort at call sites: cascade deletions log removal failures
// instead of failing, and removing an already-missing file is not an error.
type FileStore interface {
	Save(ctx context.Context, name string, reader io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) bool
}

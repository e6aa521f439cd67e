// Package storage abstracts the destination of history exports.
//
// The history export command writes CSV snapshots either to local disk
// or to an S3-compatible object store; both sit behind the same
// FileStore interface so the command logic stays backend-agnostic.
package storage

import (
	"context"
	"io"
)

// FileStore writes export files to a storage backend.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Write opens the named file for writing, truncating any existing
	// content. Parent directories are created as needed. The caller
	// must close the returned WriteCloser; errors from the underlying
	// backend may be deferred until Close.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named file already exists, letting
	// callers refuse to clobber a previous export.
	Exists(ctx context.Context, path string) (bool, error)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Package storage contains the blob store abstraction and its backends.
// A blob store persists raw uploaded bytes and hands back an opaque
// storage reference used for later retrieval.

// ErrBlobNotFound is returned by Get when no bytes exist for the given
// reference, including the case where the reference was recorded but the
// underlying object has gone missing.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists uploaded byte content and returns a stable reference.
//
// Put generates the reference itself: a nanosecond timestamp combined with
// the original name, so concurrent uploads of identically named files never
// collide. It also ensures the backing container (directory or bucket)
// exists before writing.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, originalName string, size int64) (string, error)
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
}

// newReference builds the storage reference for an uploaded file. The
// name must already be stripped of any path components.
func newReference(name string) string {
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)
}

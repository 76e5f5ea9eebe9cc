package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// localStore implements BlobStore on a local directory. It is the default
// backend and is safe for concurrent use: writes are create-exclusive and
// existing files are never rewritten.
type localStore struct {
	dir string
}

// NewLocal creates a disk-backed blob store rooted at dir. The directory
// itself is created lazily on the first Put.
func NewLocal(dir string) (BlobStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	return &localStore{dir: dir}, nil
}

// Put streams the content into a new file and returns its reference.
// The original name is reduced to its base so a caller-supplied name can
// never place the file outside the storage directory.
func (s *localStore) Put(ctx context.Context, r io.Reader, originalName string, size int64) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}

	name := filepath.Base(filepath.ToSlash(originalName))
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ref := newReference(name)
		f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			// Same-nanosecond collision with an identically named upload;
			// the next clock read yields a fresh reference.
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create blob: %w", err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write blob: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("close blob: %w", err)
		}
		return ref, nil
	}
}

// Get opens the blob for the given reference. A reference that resolves to
// nothing on disk reports ErrBlobNotFound rather than a raw I/O error.
func (s *localStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

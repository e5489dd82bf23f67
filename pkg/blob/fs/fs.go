// Package fs implements the blob store on the local filesystem.
//
// Blobs live under a single base directory using their allocated storage
// path (drive/<year>/<month>/<digest><ext>). Writes are staged to a
// temporary file in the same directory and atomically renamed into place,
// so a reader can never observe a partially written blob and a crash
// mid-write leaves only a stray temp file for the collector to sweep.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/drivevault/drivevault/pkg/blob"
)

// FSBlobStore implements blob.WritableStore and blob.SweepableStore using
// the local filesystem.
//
// Thread safety: safe for concurrent use. Concurrent writes to the same
// path are resolved by the atomic rename — whichever temp file lands last
// wins, and because paths are content-addressed both writers carry
// identical bytes.
type FSBlobStore struct {
	basePath string
}

// tempPrefix marks staged files so ListPaths can skip them and a sweep can
// identify leftovers from crashed writes.
const tempPrefix = ".tmp-"

// NewFSBlobStore creates a filesystem blob store rooted at basePath,
// creating the directory if it does not exist.
func NewFSBlobStore(ctx context.Context, basePath string) (*FSBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	return &FSBlobStore{basePath: basePath}, nil
}

// resolve maps a storage path to an absolute filesystem path, rejecting
// paths that would escape the storage root.
func (s *FSBlobStore) resolve(path string) (string, error) {
	if !blob.ValidPath(path) {
		return "", fmt.Errorf("path %q: %w", path, blob.ErrInvalidPath)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(path)), nil
}

// Open returns a reader for the blob at path.
func (s *FSBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, nil
}

// Size returns the byte length of the blob at path without reading it.
func (s *FSBlobStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
		}
		return 0, fmt.Errorf("failed to stat blob: %w", err)
	}

	return info.Size(), nil
}

// Exists reports whether bytes are present at path.
func (s *FSBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blob existence: %w", err)
	}

	return true, nil
}

// Write stores the bytes from r at path if the path is empty.
//
// The write is staged: bytes go to a temp file beside the target, then an
// atomic rename publishes them. If the target already exists the incoming
// bytes are discarded and the call succeeds (write-once semantics — the
// path is content-addressed, so the existing bytes are identical).
func (s *FSBlobStore) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	// Fast path: the blob already exists, nothing to do.
	if _, err := os.Stat(full); err == nil {
		return nil
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+filepath.Base(full)+"-*")
	if err != nil {
		return wrapWriteErr(fmt.Errorf("failed to create staging file: %w", err))
	}
	tmpName := tmp.Name()

	// A failed write must not leave the staging file behind.
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return wrapWriteErr(fmt.Errorf("failed to stage blob: %w", err))
	}

	// Flush to the medium before publishing; the rename must never expose
	// bytes the kernel has not persisted.
	if err := tmp.Sync(); err != nil {
		cleanup()
		return wrapWriteErr(fmt.Errorf("failed to sync blob: %w", err))
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return wrapWriteErr(fmt.Errorf("failed to close staging file: %w", err))
	}

	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return wrapWriteErr(fmt.Errorf("failed to publish blob: %w", err))
	}

	return nil
}

// Remove deletes the blob at path. Idempotent.
func (s *FSBlobStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove blob: %w", err)
	}

	return nil
}

// ListPaths walks the storage root and returns every published blob path.
// Staged temp files are skipped.
func (s *FSBlobStore) ListPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string

	err := filepath.WalkDir(s.basePath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Check context periodically during large scans.
		if len(paths)%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk blob root: %w", err)
	}

	return paths, nil
}

// RemoveBatch deletes multiple blobs, returning per-path failures.
func (s *FSBlobStore) RemoveBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i, path := range paths {
		if i%10 == 0 {
			if err := ctx.Err(); err != nil {
				for _, remaining := range paths[i:] {
					failures[remaining] = err
				}
				return failures, err
			}
		}

		if err := s.Remove(ctx, path); err != nil {
			failures[path] = err
		}
	}

	return failures, nil
}

// wrapWriteErr maps a full medium to the sentinel the orchestrator checks.
func wrapWriteErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", blob.ErrStorageFull, err)
	}
	return err
}

// Package memory implements the blob store in process memory.
//
// Used by unit tests and by the drive service tests that need a store with
// no filesystem footprint. Not suitable for production: contents are lost
// on process exit.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/drivevault/drivevault/pkg/blob"
)

// MemoryBlobStore implements blob.WritableStore and blob.SweepableStore
// backed by a map. Safe for concurrent use.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
	}
}

// Open returns a reader over a copy of the stored bytes.
func (s *MemoryBlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[path]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Size returns the stored byte length.
func (s *MemoryBlobStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	data, ok := s.blobs[path]
	s.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
	}

	return int64(len(data)), nil
}

// Exists reports whether bytes are present at path.
func (s *MemoryBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.blobs[path]
	s.mu.RUnlock()

	return ok, nil
}

// Write stores the bytes from r at path if the path is empty. Write-once:
// a second write to the same path is a no-op.
func (s *MemoryBlobStore) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !blob.ValidPath(path) {
		return fmt.Errorf("path %q: %w", path, blob.ErrInvalidPath)
	}

	s.mu.RLock()
	_, exists := s.blobs[path]
	s.mu.RUnlock()
	if exists {
		return nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock: a concurrent writer may have won.
	if _, exists := s.blobs[path]; !exists {
		s.blobs[path] = data
	}

	return nil
}

// Remove deletes the blob at path. Idempotent.
func (s *MemoryBlobStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.blobs, path)
	s.mu.Unlock()

	return nil
}

// ListPaths returns every stored path in sorted order.
func (s *MemoryBlobStore) ListPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	paths := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	sort.Strings(paths)
	return paths, nil
}

// RemoveBatch deletes multiple blobs. Failures are impossible for the map
// backend, so the returned map is always empty unless the context expires.
func (s *MemoryBlobStore) RemoveBatch(ctx context.Context, paths []string) (map[string]error, error) {
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

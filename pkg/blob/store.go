// Package blob defines the durable byte-storage contract for DriveVault.
//
// A blob store holds the physical bytes of uploaded files, keyed by an
// opaque storage path allocated from the content digest (see path.go). The
// store knows nothing about users, folders, shares, or quotas: the metadata
// catalog is the single source of truth for "does this file exist", and the
// blob store only answers "are these bytes here".
//
// Separation of concerns:
//   - File metadata, ownership, access control → pkg/catalog
//   - Allow/deny decisions → pkg/access
//   - Quota decisions → pkg/quota
//   - Raw bytes at a path → this package
//
// Paths keyed by digest are effectively immutable once written: the store
// is append-mostly, and a second write to an existing path is a no-op. That
// write-once property is what makes the upload transaction safe — a failed
// catalog commit after a blob write leaves a reclaimable orphan, never a
// corrupt record.
package blob

import (
	"context"
	"io"
)

// Store provides read access to blobs.
//
// Thread safety: implementations must be safe for concurrent use by
// multiple goroutines. Because paths are write-once, readers never observe
// partial content (filesystem implementations stage writes to a temp file
// and rename into place).
type Store interface {
	// Open returns a reader for the bytes at path.
	//
	// The caller is responsible for closing the reader. Returns
	// ErrBlobNotFound (wrapped) if the path holds no bytes.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Size returns the byte length of the blob at path without reading it.
	//
	// Returns ErrBlobNotFound (wrapped) if the path holds no bytes.
	Size(ctx context.Context, path string) (int64, error)

	// Exists reports whether bytes are present at path.
	//
	// A missing blob is (false, nil), not an error: the upload path uses
	// this to verify a dedup hit before skipping the write, and the
	// collector uses it when auditing catalog references.
	Exists(ctx context.Context, path string) (bool, error)
}

// WritableStore extends Store with write-once semantics.
type WritableStore interface {
	Store

	// Write stores the bytes from r at path if the path is empty.
	//
	// Idempotent: writing to a path that already holds bytes is a no-op
	// and returns nil without consuming r (content addressing guarantees
	// the existing bytes are identical). Implementations must stage the
	// write so a concurrent reader can never observe a partial blob.
	//
	// Returns ErrStorageFull (wrapped) when the medium is full and
	// ErrInvalidPath for paths outside the storage root.
	Write(ctx context.Context, path string, r io.Reader) error

	// Remove deletes the blob at path.
	//
	// Idempotent: removing an absent path returns nil. Only the garbage
	// collector calls this — normal operation never deletes blobs because
	// deduplicated records may still reference them.
	Remove(ctx context.Context, path string) error
}

// SweepableStore is implemented by stores that support garbage collection
// of unreferenced blobs.
//
// The collector (pkg/gc) computes the orphan set as all stored paths minus
// the paths referenced by any catalog row, then removes orphans in batches.
type SweepableStore interface {
	Store

	// ListPaths returns every storage path currently holding bytes.
	//
	// For large stores this may be slow; the collector runs it on a
	// background schedule, never on a request path.
	ListPaths(ctx context.Context) ([]string, error)

	// RemoveBatch deletes multiple blobs in one operation.
	//
	// Best-effort: successfully removed paths are not rolled back when
	// others fail. The returned map contains only the failures (empty map
	// means all succeeded). Absent paths count as successes.
	RemoveBatch(ctx context.Context, paths []string) (map[string]error, error)
}

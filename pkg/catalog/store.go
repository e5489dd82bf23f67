package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FolderUpdate carries the mutable folder fields for UpdateFolder. Nil
// fields are left unchanged.
type FolderUpdate struct {
	Name        *string
	Description *string
	Visibility  *Visibility
}

// Catalog is the transactional metadata store.
//
// Implementations own every relational invariant: per-owner name
// uniqueness inside a folder, incremental folder aggregates, the canonical
// blob index, and the per-owner usage counter. Each method is one logical
// operation executed atomically; concurrent mutations of the same folder's
// aggregates must serialize so no update is ever lost, and concurrent
// inserts of the same digest must converge on one canonical storage path
// rather than erroring.
//
// Thread safety: implementations must be safe for concurrent use by
// multiple goroutines.
type Catalog interface {
	// InsertFile atomically records a new file.
	//
	// In one transaction: enforces (owner, folder, name) uniqueness,
	// verifies the target folder exists and bumps its aggregates, creates
	// or reference-counts the canonical blob record for the digest, and
	// charges the owner's usage counter.
	//
	// Dedup races are absorbed: if a concurrent insert already made the
	// digest canonical under a different storage path, the stored record
	// is rewritten to the canonical path. The returned File is the row as
	// committed.
	//
	// Fails with ErrConflict when the name is taken and ErrParentNotFound
	// when FolderID references an absent or deleted folder.
	InsertFile(ctx context.Context, file *File) (*File, error)

	// GetFile returns the file row, including soft-deleted rows. Callers
	// decide how a deleted row surfaces. Fails with ErrNotFound if no row
	// exists.
	GetFile(ctx context.Context, id uuid.UUID) (*File, error)

	// FindByDigest returns the canonical blob record for a digest, or
	// (nil, nil) when no live file references it.
	FindByDigest(ctx context.Context, digest string) (*BlobRef, error)

	// ListFiles returns the owner's files matching the filter.
	ListFiles(ctx context.Context, filter FileFilter) ([]*File, error)

	// SoftDeleteFile marks the file deleted and, in the same transaction,
	// decrements the owning folder's aggregates, the owner's usage, and
	// the canonical blob refcount (dropping the canonical record at
	// zero). The blob itself is never removed here.
	//
	// Fails with ErrNotFound for absent or already-deleted files.
	SoftDeleteFile(ctx context.Context, id uuid.UUID, now time.Time) error

	// RecordDownload increments the download counter and stamps the
	// last-access time.
	RecordDownload(ctx context.Context, id uuid.UUID, now time.Time) error

	// CreateFolder records a new folder, deriving Depth and Path from the
	// parent. Fails with ErrParentNotFound when ParentID references an
	// absent or deleted folder and ErrConflict when a sibling already
	// carries the name.
	CreateFolder(ctx context.Context, folder *Folder) (*Folder, error)

	// GetFolder returns the folder row, including soft-deleted rows.
	// Fails with ErrNotFound if no row exists.
	GetFolder(ctx context.Context, id uuid.UUID) (*Folder, error)

	// UpdateFolder applies the non-nil fields. A rename re-materializes
	// the folder's path and the paths of every descendant folder in the
	// same transaction. Fails with ErrConflict when the new name collides
	// with a sibling.
	UpdateFolder(ctx context.Context, id uuid.UUID, update FolderUpdate, now time.Time) (*Folder, error)

	// SoftDeleteFolder marks an empty folder deleted. Fails with
	// ErrNotEmpty while the folder still holds files or subfolders.
	SoftDeleteFolder(ctx context.Context, id uuid.UUID, now time.Time) error

	// ListFolders returns the owner's folders matching the filter.
	ListFolders(ctx context.Context, filter FolderFilter) ([]*Folder, error)

	// CreateShare records a share grant. Public token grants additionally
	// register the token for anonymous lookup; a token collision fails
	// with ErrConflict.
	CreateShare(ctx context.Context, share *Share) (*Share, error)

	// GetShare returns the share row. Fails with ErrNotFound.
	GetShare(ctx context.Context, id uuid.UUID) (*Share, error)

	// FindShareByToken resolves a public token to its share. Revoked
	// tokens no longer resolve. Fails with ErrNotFound.
	FindShareByToken(ctx context.Context, token string) (*Share, error)

	// ListSharesForFile returns every share ever granted on the file,
	// including expired and revoked ones.
	ListSharesForFile(ctx context.Context, fileID uuid.UUID) ([]*Share, error)

	// RecordShareAccess increments the share's access counter and stamps
	// the last-access time.
	RecordShareAccess(ctx context.Context, id uuid.UUID, now time.Time) error

	// RevokeShare deactivates the share and unregisters its public token,
	// if any. Fails with ErrNotFound; revoking twice is ErrNotFound too,
	// since the first revocation already removed it from the active set.
	RevokeShare(ctx context.Context, id uuid.UUID, now time.Time) error

	// CreateVersion records an immutable snapshot row for a file.
	// Snapshotting the live number supersedes it: the live row advances
	// to the next number in the same transaction, keeping history
	// strictly behind the live pointer. Fails with ErrNotFound when the
	// file is absent or deleted, ErrConflict when the version number is
	// already occupied, and ErrInvalidArgument when it is ahead of the
	// live version.
	CreateVersion(ctx context.Context, version *Version) (*Version, error)

	// ListVersions returns the file's historical snapshots in ascending
	// version order.
	ListVersions(ctx context.Context, fileID uuid.UUID) ([]*Version, error)

	// RestoreVersion rewinds the file's live content to the named
	// snapshot. In one transaction it appends a version preserving the
	// pre-restore state, rewrites the file's digest/path/size, advances
	// the live version number, re-points the canonical blob records, and
	// adjusts folder aggregates and owner usage by the size delta.
	//
	// Fails with ErrNotFound when the file or the version is absent.
	RestoreVersion(ctx context.Context, fileID uuid.UUID, number int, actorID string, now time.Time) (*File, error)

	// Usage returns the owner's consumed bytes: the running sum of
	// declared sizes over their non-deleted files.
	Usage(ctx context.Context, ownerID string) (int64, error)

	// ReferencedPaths returns every storage path referenced by any
	// catalog row, live or soft-deleted, including version snapshots.
	// The collector subtracts this set from the blob store's contents to
	// find orphans.
	ReferencedPaths(ctx context.Context) (map[string]struct{}, error)

	// Healthcheck verifies the store can serve reads.
	Healthcheck(ctx context.Context) error

	// Close releases the store's resources. The store must not be used
	// after Close.
	Close() error
}

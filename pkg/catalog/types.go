// Package catalog defines the metadata model for DriveVault: files,
// folders, shares, versions, and the canonical blob index that backs
// content deduplication.
//
// The catalog is the single source of truth for existence and ownership.
// A blob on durable storage with no catalog row referencing it is garbage;
// a catalog row whose blob is missing is an integrity fault. All relational
// invariants (name uniqueness, folder aggregates, dedup canonicality,
// per-owner usage) are owned by Catalog implementations and enforced inside
// transactions scoped to exactly one logical operation.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can discover and read a file or folder beyond
// its owner.
type Visibility string

const (
	// VisibilityPrivate restricts access to the owner and share grantees.
	VisibilityPrivate Visibility = "private"

	// VisibilityShared marks records the owner has granted shares on.
	// Access still requires an unexpired share; the value is a listing
	// hint, not an access rule.
	VisibilityShared Visibility = "shared"

	// VisibilityPublic grants read access to any actor, authenticated
	// or not.
	VisibilityPublic Visibility = "public"
)

// ValidVisibility reports whether v is one of the known visibility levels.
func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// Permission is the access level carried by a share grant.
type Permission string

const (
	// PermissionRead allows metadata reads and content downloads.
	PermissionRead Permission = "read"
)

// File is a logical, user-visible document.
//
// Two File records may share the same Digest and StoragePath (dedup), but
// each row is independently owned, named, and access-controlled. A
// soft-deleted File (DeletedAt set) is excluded from listings and quota
// totals; its blob stays on storage because other rows may reference it.
type File struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`

	// Digest is the hex content digest of the bytes at StoragePath.
	Digest      string `json:"digest"`
	StoragePath string `json:"storage_path"`
	MediaType   string `json:"media_type"`
	Size        int64  `json:"size"`
	Extension   string `json:"extension,omitempty"`

	// FolderID is nil for files at the drive root.
	FolderID *uuid.UUID `json:"folder_id,omitempty"`
	OwnerID  string     `json:"owner_id"`

	Visibility Visibility `json:"visibility"`
	Tags       []string   `json:"tags,omitempty"`

	// Version is the live version number, starting at 1.
	Version int `json:"version"`

	Downloads      int64      `json:"downloads"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the file has been soft-deleted.
func (f *File) Deleted() bool {
	return f.DeletedAt != nil
}

// Folder is a hierarchical container forming a tree rooted at ParentID nil.
//
// FileCount and TotalSizeBytes aggregate the non-deleted files directly
// inside the folder (not recursive). They are maintained incrementally by
// every transaction that changes folder membership, never recomputed.
type Folder struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`

	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// Path is the materialized slash-joined path from the root, e.g.
	// "/projects/reports". Depth is 0 for root-level folders.
	Path  string `json:"path"`
	Depth int    `json:"depth"`

	OwnerID    string     `json:"owner_id"`
	Visibility Visibility `json:"visibility"`

	FileCount      int64 `json:"file_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the folder has been soft-deleted.
func (f *Folder) Deleted() bool {
	return f.DeletedAt != nil
}

// Version is an immutable historical snapshot of a File's content,
// recorded when a newer version supersedes it. Versions are append-only:
// restoring one does not delete its row, it creates a new row recording
// the pre-restore state and advances the File's live pointer.
type Version struct {
	ID     uuid.UUID `json:"id"`
	FileID uuid.UUID `json:"file_id"`

	// Number is the version number this snapshot preserves.
	Number int `json:"number"`

	Digest      string `json:"digest"`
	StoragePath string `json:"storage_path"`
	Size        int64  `json:"size"`

	Note       string    `json:"note,omitempty"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// GrantKind discriminates the two share grant variants.
type GrantKind string

const (
	// GrantKindUser targets one authenticated user by ID.
	GrantKindUser GrantKind = "user"

	// GrantKindPublic is an anonymous capability token.
	GrantKindPublic GrantKind = "public"
)

// Grant is the capability side of a share: either a named user or an
// anonymous public token, never both. The two variants are mutually
// exclusive by construction; use UserGrant or PublicGrant.
type Grant struct {
	Kind GrantKind `json:"kind"`

	// UserID is set only when Kind is GrantKindUser.
	UserID string `json:"user_id,omitempty"`

	// Token is set only when Kind is GrantKindPublic.
	Token string `json:"token,omitempty"`
}

// UserGrant builds a grant targeting a specific user.
func UserGrant(userID string) Grant {
	return Grant{Kind: GrantKindUser, UserID: userID}
}

// PublicGrant builds an anonymous token grant.
func PublicGrant(token string) Grant {
	return Grant{Kind: GrantKindPublic, Token: token}
}

// Share is a capability grant on exactly one File.
//
// A share is authoritative for access decisions only while it is neither
// expired nor revoked. Counters are the only fields mutated after
// creation.
type Share struct {
	ID     uuid.UUID `json:"id"`
	FileID uuid.UUID `json:"file_id"`

	Grant      Grant      `json:"grant"`
	Permission Permission `json:"permission"`
	GrantedBy  string     `json:"granted_by"`

	// ExpiresAt nil means the share never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the share is authoritative for access decisions
// at the given instant.
func (s *Share) Active(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Covers reports whether the share's permission level satisfies the
// requested one. With only read grants today this is an equality check,
// kept as a method so a write level can slot in later.
func (s *Share) Covers(p Permission) bool {
	return s.Permission == p
}

// BlobRef is the canonical blob record for a digest: the dedup index
// entry mapping content to its single physical location.
//
// RefCount counts the non-deleted File rows referencing the digest. The
// record exists only while RefCount > 0, so FindByDigest never resolves to
// a long-deleted original. Dropping the record does not delete the blob;
// reclamation is the collector's job.
type BlobRef struct {
	Digest      string    `json:"digest"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	RefCount    int64     `json:"ref_count"`
	CreatedAt   time.Time `json:"created_at"`
}

package catalog

import "github.com/google/uuid"

// FileFilter narrows a file listing. Zero-value fields are ignored, so the
// empty filter matches every non-deleted file of the owner. Filters are
// typed criteria objects consumed by the store, never assembled into query
// strings.
type FileFilter struct {
	// OwnerID scopes the listing. Required: listings are always
	// per-owner, cross-owner discovery goes through shares.
	OwnerID string

	// FolderID restricts to files directly inside one folder. RootOnly
	// restricts to files outside any folder. Setting both is invalid.
	FolderID *uuid.UUID
	RootOnly bool

	// Tags restricts to files carrying every listed tag.
	Tags []string

	// Visibility restricts to one visibility level.
	Visibility *Visibility

	// IncludeDeleted adds soft-deleted files to the result. Off by
	// default: deleted files are invisible to normal listings.
	IncludeDeleted bool
}

// FolderFilter narrows a folder listing. Zero-value fields are ignored.
type FolderFilter struct {
	// OwnerID scopes the listing. Required.
	OwnerID string

	// ParentID restricts to direct children of one folder. RootOnly
	// restricts to root-level folders. Setting both is invalid.
	ParentID *uuid.UUID
	RootOnly bool
}

// Matches reports whether f satisfies every criterion in the filter,
// assuming the owner scope was already applied by the key scan.
func (filter *FileFilter) Matches(f *File) bool {
	if f.Deleted() && !filter.IncludeDeleted {
		return false
	}
	if filter.RootOnly && f.FolderID != nil {
		return false
	}
	if filter.FolderID != nil {
		if f.FolderID == nil || *f.FolderID != *filter.FolderID {
			return false
		}
	}
	if filter.Visibility != nil && f.Visibility != *filter.Visibility {
		return false
	}
	for _, want := range filter.Tags {
		if !hasTag(f.Tags, want) {
			return false
		}
	}
	return true
}

// Matches reports whether f satisfies every criterion in the filter,
// assuming the owner scope was already applied by the key scan.
func (filter *FolderFilter) Matches(f *Folder) bool {
	if f.Deleted() {
		return false
	}
	if filter.RootOnly && f.ParentID != nil {
		return false
	}
	if filter.ParentID != nil {
		if f.ParentID == nil || *f.ParentID != *filter.ParentID {
			return false
		}
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

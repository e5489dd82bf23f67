package badger

import (
	"context"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
)

func validateFolder(folder *catalog.Folder) error {
	switch {
	case strings.TrimSpace(folder.Name) == "":
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "folder name is required"}
	case strings.Contains(folder.Name, "/"):
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "folder name cannot contain a slash", Ref: folder.Name}
	case folder.OwnerID == "":
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "folder owner is required"}
	case !catalog.ValidVisibility(folder.Visibility):
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "unknown visibility", Ref: string(folder.Visibility)}
	}
	return nil
}

// CreateFolder records a new folder, deriving Depth and Path from the
// parent inside the transaction so a concurrent parent deletion cannot
// produce an orphan.
func (c *BadgerCatalog) CreateFolder(ctx context.Context, folder *catalog.Folder) (*catalog.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFolder(folder); err != nil {
		return nil, err
	}

	record := *folder

	err := c.update(ctx, func(txn *badger.Txn) error {
		if record.ParentID != nil {
			parent, err := getFolderTxn(txn, *record.ParentID)
			if catalog.IsCode(err, catalog.ErrNotFound) || (err == nil && (parent.Deleted() || parent.OwnerID != record.OwnerID)) {
				return &catalog.StoreError{
					Code:    catalog.ErrParentNotFound,
					Message: "parent folder not found",
					Ref:     record.ParentID.String(),
				}
			}
			if err != nil {
				return err
			}

			record.Depth = parent.Depth + 1
			record.Path = parent.Path + "/" + record.Name
		} else {
			record.Depth = 0
			record.Path = "/" + record.Name
		}

		nameKey := keyFolderName(record.OwnerID, record.ParentID, record.Name)
		taken, err := exists(txn, nameKey)
		if err != nil {
			return err
		}
		if taken {
			return &catalog.StoreError{
				Code:    catalog.ErrConflict,
				Message: "a folder with this name already exists here",
				Ref:     record.Name,
			}
		}

		if err := saveFolderTxn(txn, &record); err != nil {
			return err
		}
		if err := txn.Set(nameKey, encodeUUID(record.ID)); err != nil {
			return err
		}

		return txn.Set(keyOwnerFolder(record.OwnerID, record.ID), nil)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetFolder returns the folder row, including soft-deleted rows.
func (c *BadgerCatalog) GetFolder(ctx context.Context, id uuid.UUID) (*catalog.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var folder *catalog.Folder

	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		folder, err = getFolderTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return folder, nil
}

// UpdateFolder applies the non-nil fields of update. A rename
// re-materializes the folder's path and every descendant folder's path in
// the same transaction, so the materialized-path invariant never observes
// a half-applied rename.
func (c *BadgerCatalog) UpdateFolder(ctx context.Context, id uuid.UUID, update catalog.FolderUpdate, now time.Time) (*catalog.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if update.Visibility != nil && !catalog.ValidVisibility(*update.Visibility) {
		return nil, &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "unknown visibility", Ref: string(*update.Visibility)}
	}

	var updated *catalog.Folder

	err := c.update(ctx, func(txn *badger.Txn) error {
		folder, err := getFolderTxn(txn, id)
		if err != nil {
			return err
		}
		if folder.Deleted() {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "folder not found",
				Ref:     id.String(),
			}
		}

		if update.Name != nil && *update.Name != folder.Name {
			newName := strings.TrimSpace(*update.Name)
			if newName == "" || strings.Contains(newName, "/") {
				return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "invalid folder name", Ref: *update.Name}
			}

			newNameKey := keyFolderName(folder.OwnerID, folder.ParentID, newName)
			taken, err := exists(txn, newNameKey)
			if err != nil {
				return err
			}
			if taken {
				return &catalog.StoreError{
					Code:    catalog.ErrConflict,
					Message: "a folder with this name already exists here",
					Ref:     newName,
				}
			}

			if err := txn.Delete(keyFolderName(folder.OwnerID, folder.ParentID, folder.Name)); err != nil {
				return err
			}
			if err := txn.Set(newNameKey, encodeUUID(folder.ID)); err != nil {
				return err
			}

			oldPath := folder.Path
			newPath := "/" + newName
			if folder.ParentID != nil {
				parent, err := getFolderTxn(txn, *folder.ParentID)
				if err != nil {
					return err
				}
				newPath = parent.Path + "/" + newName
			}

			folder.Name = newName
			folder.Path = newPath

			if err := rewriteDescendantPaths(txn, folder.OwnerID, id, oldPath, newPath, now); err != nil {
				return err
			}
		}

		if update.Description != nil {
			folder.Description = *update.Description
		}
		if update.Visibility != nil {
			folder.Visibility = *update.Visibility
		}

		folder.UpdatedAt = now
		updated = folder

		return saveFolderTxn(txn, folder)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// rewriteDescendantPaths swaps the path prefix on every folder below the
// renamed one. Descendants are found by path prefix over the owner's
// folders; trees are shallow, so the scan stays cheap.
func rewriteDescendantPaths(txn *badger.Txn, ownerID string, renamed uuid.UUID, oldPath, newPath string, now time.Time) error {
	prefix := keyOwnerFolderPrefix(ownerID)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		id, err := decodeUUID(it.Item().Key()[len(prefix):])
		if err != nil {
			return err
		}
		if id == renamed {
			continue
		}

		descendant, err := getFolderTxn(txn, id)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(descendant.Path, oldPath+"/") {
			continue
		}

		descendant.Path = newPath + strings.TrimPrefix(descendant.Path, oldPath)
		descendant.UpdatedAt = now
		if err := saveFolderTxn(txn, descendant); err != nil {
			return err
		}
	}

	return nil
}

// SoftDeleteFolder marks an empty folder deleted, freeing its name for
// reuse. Folders still holding files or subfolders fail with ErrNotEmpty.
func (c *BadgerCatalog) SoftDeleteFolder(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.update(ctx, func(txn *badger.Txn) error {
		folder, err := getFolderTxn(txn, id)
		if err != nil {
			return err
		}
		if folder.Deleted() {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "folder not found",
				Ref:     id.String(),
			}
		}

		if folder.FileCount > 0 {
			return &catalog.StoreError{
				Code:    catalog.ErrNotEmpty,
				Message: "folder still contains files",
				Ref:     id.String(),
			}
		}

		hasChildren, err := hasChildFolders(txn, folder.OwnerID, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return &catalog.StoreError{
				Code:    catalog.ErrNotEmpty,
				Message: "folder still contains subfolders",
				Ref:     id.String(),
			}
		}

		folder.DeletedAt = &now
		folder.UpdatedAt = now

		if err := txn.Delete(keyFolderName(folder.OwnerID, folder.ParentID, folder.Name)); err != nil {
			return err
		}

		return saveFolderTxn(txn, folder)
	})
}

// hasChildFolders reports whether any live subfolder names the folder as
// its parent. Only live folders hold a name index entry, so one probe of
// the prefix answers the question.
func hasChildFolders(txn *badger.Txn, ownerID string, parentID uuid.UUID) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = keyFolderChildPrefix(ownerID, parentID)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid(), nil
}

// ListFolders returns the owner's folders matching the filter.
func (c *BadgerCatalog) ListFolders(ctx context.Context, filter catalog.FolderFilter) ([]*catalog.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.OwnerID == "" {
		return nil, &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "listing requires an owner"}
	}
	if filter.ParentID != nil && filter.RootOnly {
		return nil, &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "parent and root-only filters are exclusive"}
	}

	var folders []*catalog.Folder
	prefix := keyOwnerFolderPrefix(filter.OwnerID)

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id, err := decodeUUID(it.Item().Key()[len(prefix):])
			if err != nil {
				return err
			}

			folder, err := getFolderTxn(txn, id)
			if err != nil {
				return err
			}
			if filter.Matches(folder) {
				folders = append(folders, folder)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return folders, nil
}

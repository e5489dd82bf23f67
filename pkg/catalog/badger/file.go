package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
)

// getFileTxn loads a file row inside a transaction, mapping a missing key
// to the NotFound domain error.
func getFileTxn(txn *badger.Txn, id uuid.UUID) (*catalog.File, error) {
	bytes, err := getValue(txn, keyFile(id))
	if err == badger.ErrKeyNotFound {
		return nil, &catalog.StoreError{
			Code:    catalog.ErrNotFound,
			Message: "file not found",
			Ref:     id.String(),
		}
	}
	if err != nil {
		return nil, err
	}
	return decodeFile(bytes)
}

// getFolderTxn loads a folder row inside a transaction, mapping a missing
// key to the NotFound domain error.
func getFolderTxn(txn *badger.Txn, id uuid.UUID) (*catalog.Folder, error) {
	bytes, err := getValue(txn, keyFolder(id))
	if err == badger.ErrKeyNotFound {
		return nil, &catalog.StoreError{
			Code:    catalog.ErrNotFound,
			Message: "folder not found",
			Ref:     id.String(),
		}
	}
	if err != nil {
		return nil, err
	}
	return decodeFolder(bytes)
}

// saveFolderTxn serializes and stores a folder row.
func saveFolderTxn(txn *badger.Txn, folder *catalog.Folder) error {
	bytes, err := encodeFolder(folder)
	if err != nil {
		return err
	}
	return txn.Set(keyFolder(folder.ID), bytes)
}

// saveFileTxn serializes and stores a file row.
func saveFileTxn(txn *badger.Txn, file *catalog.File) error {
	bytes, err := encodeFile(file)
	if err != nil {
		return err
	}
	return txn.Set(keyFile(file.ID), bytes)
}

func validateFile(file *catalog.File) error {
	switch {
	case strings.TrimSpace(file.Name) == "":
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "file name is required"}
	case file.OwnerID == "":
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "file owner is required"}
	case file.Size < 0:
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "file size cannot be negative"}
	case file.Digest == "":
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "file digest is required"}
	case !catalog.ValidVisibility(file.Visibility):
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "unknown visibility", Ref: string(file.Visibility)}
	}
	return nil
}

// InsertFile atomically records a new file.
//
// The transaction enforces name uniqueness, verifies and bumps the target
// folder, reference-counts the canonical blob record, and charges the
// owner's usage. A lost dedup race is absorbed here: when the digest is
// already canonical under a different path, the inserted row adopts the
// winner's storage path.
func (c *BadgerCatalog) InsertFile(ctx context.Context, file *catalog.File) (*catalog.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFile(file); err != nil {
		return nil, err
	}

	// Work on a copy so the caller's record is untouched when the
	// canonical path rewrite kicks in.
	record := *file

	err := c.update(ctx, func(txn *badger.Txn) error {
		nameKey := keyFileName(record.OwnerID, record.FolderID, record.Name)
		taken, err := exists(txn, nameKey)
		if err != nil {
			return err
		}
		if taken {
			return &catalog.StoreError{
				Code:    catalog.ErrConflict,
				Message: "a file with this name already exists here",
				Ref:     record.Name,
			}
		}

		if record.FolderID != nil {
			folder, err := getFolderTxn(txn, *record.FolderID)
			if catalog.IsCode(err, catalog.ErrNotFound) || (err == nil && (folder.Deleted() || folder.OwnerID != record.OwnerID)) {
				return &catalog.StoreError{
					Code:    catalog.ErrParentNotFound,
					Message: "target folder not found",
					Ref:     record.FolderID.String(),
				}
			}
			if err != nil {
				return err
			}

			folder.FileCount++
			folder.TotalSizeBytes += record.Size
			folder.UpdatedAt = record.CreatedAt
			if err := saveFolderTxn(txn, folder); err != nil {
				return err
			}

			if err := txn.Set(keyMembership(*record.FolderID, record.ID), nil); err != nil {
				return err
			}
		}

		// Canonical blob record: first insert for a digest claims the
		// canonical role, later inserts (including race losers) adopt the
		// existing path and bump the refcount.
		canonicalPath, err := acquireBlobRefTxn(txn, record.Digest, record.StoragePath, record.Size, record.CreatedAt)
		if err != nil {
			return err
		}
		record.StoragePath = canonicalPath

		if err := saveFileTxn(txn, &record); err != nil {
			return err
		}
		if err := txn.Set(nameKey, encodeUUID(record.ID)); err != nil {
			return err
		}
		if err := txn.Set(keyOwnerFile(record.OwnerID, record.ID), nil); err != nil {
			return err
		}

		return adjustCounter(txn, keyUsage(record.OwnerID), record.Size)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetFile returns the file row, including soft-deleted rows.
func (c *BadgerCatalog) GetFile(ctx context.Context, id uuid.UUID) (*catalog.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file *catalog.File

	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		file, err = getFileTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return file, nil
}

// FindByDigest returns the canonical blob record for a digest, or
// (nil, nil) when no live file references it.
func (c *BadgerCatalog) FindByDigest(ctx context.Context, digest string) (*catalog.BlobRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ref *catalog.BlobRef

	err := c.db.View(func(txn *badger.Txn) error {
		bytes, err := getValue(txn, keyBlobRef(digest))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		ref, err = decodeBlobRef(bytes)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up digest %s: %w", digest, err)
	}

	return ref, nil
}

// ListFiles returns the owner's files matching the filter, scanning only
// the owner's index range.
func (c *BadgerCatalog) ListFiles(ctx context.Context, filter catalog.FileFilter) ([]*catalog.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.OwnerID == "" {
		return nil, &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "listing requires an owner"}
	}
	if filter.FolderID != nil && filter.RootOnly {
		return nil, &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "folder and root-only filters are exclusive"}
	}

	var files []*catalog.File
	prefix := keyOwnerFilePrefix(filter.OwnerID)

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

			file, err := getFileTxn(txn, id)
			if err != nil {
				return err
			}
			if filter.Matches(file) {
				files = append(files, file)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// SoftDeleteFile marks the file deleted and unwinds its footprint: the
// name is freed for reuse, the owning folder's aggregates and the owner's
// usage shrink by the declared size, and the canonical blob refcount drops
// (removing the dedup entry at zero). The blob itself stays on storage.
func (c *BadgerCatalog) SoftDeleteFile(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.update(ctx, func(txn *badger.Txn) error {
		file, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}
		if file.Deleted() {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "file not found",
				Ref:     id.String(),
			}
		}

		file.DeletedAt = &now
		file.UpdatedAt = now

		if err := txn.Delete(keyFileName(file.OwnerID, file.FolderID, file.Name)); err != nil {
			return err
		}

		if file.FolderID != nil {
			folder, err := getFolderTxn(txn, *file.FolderID)
			if err != nil {
				return err
			}

			folder.FileCount--
			folder.TotalSizeBytes -= file.Size
			folder.UpdatedAt = now
			if err := saveFolderTxn(txn, folder); err != nil {
				return err
			}

			if err := txn.Delete(keyMembership(*file.FolderID, file.ID)); err != nil {
				return err
			}
		}

		if err := releaseBlobRefTxn(txn, file.Digest); err != nil {
			return err
		}

		if err := adjustCounter(txn, keyUsage(file.OwnerID), -file.Size); err != nil {
			return err
		}

		return saveFileTxn(txn, file)
	})
}

// RecordDownload increments the download counter and stamps the
// last-access time.
func (c *BadgerCatalog) RecordDownload(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.update(ctx, func(txn *badger.Txn) error {
		file, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}

		file.Downloads++
		file.LastAccessedAt = &now

		return saveFileTxn(txn, file)
	})
}

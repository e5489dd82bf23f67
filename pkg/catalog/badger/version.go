package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/digest"
)

func saveVersionTxn(txn *badger.Txn, version *catalog.Version) error {
	bytes, err := encodeVersion(version)
	if err != nil {
		return err
	}
	return txn.Set(keyVersion(version.FileID, version.Number), bytes)
}

// recordVersionTxn appends a snapshot of the file's current content. The
// snapshot carries the live version number, so the history reads as "what
// version N contained".
func recordVersionTxn(txn *badger.Txn, file *catalog.File, note, uploaderID string, now time.Time) error {
	return saveVersionTxn(txn, &catalog.Version{
		ID:          uuid.New(),
		FileID:      file.ID,
		Number:      file.Version,
		Digest:      file.Digest,
		StoragePath: file.StoragePath,
		Size:        file.Size,
		Note:        note,
		UploaderID:  uploaderID,
		CreatedAt:   now,
	})
}

// CreateVersion records an immutable snapshot row for a file. The target
// file must exist and be live, and the version number must be unoccupied
// and no greater than the live version. Snapshotting the live number
// supersedes it: the live row advances to the next number in the same
// transaction, so history always sits strictly behind the live pointer
// and the snapshot stays restorable.
func (c *BadgerCatalog) CreateVersion(ctx context.Context, version *catalog.Version) (*catalog.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateVersion(version); err != nil {
		return nil, err
	}

	record := *version
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := c.update(ctx, func(txn *badger.Txn) error {
		file, err := getFileTxn(txn, record.FileID)
		if err != nil {
			return err
		}
		if file.Deleted() {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "file not found",
				Ref:     record.FileID.String(),
			}
		}

		if record.Number > file.Version {
			return &catalog.StoreError{
				Code:    catalog.ErrInvalidArgument,
				Message: fmt.Sprintf("version %d is ahead of the live version %d", record.Number, file.Version),
				Ref:     record.FileID.String(),
			}
		}

		versionKey := keyVersion(record.FileID, record.Number)
		occupied, err := exists(txn, versionKey)
		if err != nil {
			return err
		}
		if occupied {
			return &catalog.StoreError{
				Code:    catalog.ErrConflict,
				Message: fmt.Sprintf("version %d already recorded", record.Number),
				Ref:     record.FileID.String(),
			}
		}

		if record.Number == file.Version {
			file.Version++
			file.UpdatedAt = record.CreatedAt
			if err := saveFileTxn(txn, file); err != nil {
				return err
			}
		}

		return saveVersionTxn(txn, &record)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func validateVersion(version *catalog.Version) error {
	if version == nil || version.FileID == uuid.Nil {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "version requires a file reference",
		}
	}
	if version.Number < 1 {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "version numbers start at 1",
			Ref:     version.FileID.String(),
		}
	}
	if !digest.Valid(version.Digest) {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "version requires a well-formed content digest",
			Ref:     version.FileID.String(),
		}
	}
	if version.StoragePath == "" {
		return &catalog.StoreError{
			Code:    catalog.ErrInvalidArgument,
			Message: "version requires a storage path",
			Ref:     version.FileID.String(),
		}
	}
	return nil
}

// ListVersions returns the file's historical snapshots in ascending
// version order. The big-endian number encoding makes the prefix scan
// come out ordered for free.
func (c *BadgerCatalog) ListVersions(ctx context.Context, fileID uuid.UUID) ([]*catalog.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var versions []*catalog.Version

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyVersionPrefix(fileID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(val []byte) error {
				version, err := decodeVersion(val)
				if err != nil {
					return err
				}
				versions = append(versions, version)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return versions, nil
}

// RestoreVersion rewinds the file's live content to the named snapshot.
//
// Versions are append-only: the restore first snapshots the pre-restore
// state under the current live number, then rewrites the file to the
// restored content and advances the live number. Canonical blob records,
// folder aggregates, and owner usage all move with the size delta in the
// same transaction.
func (c *BadgerCatalog) RestoreVersion(ctx context.Context, fileID uuid.UUID, number int, actorID string, now time.Time) (*catalog.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var restored *catalog.File

	err := c.update(ctx, func(txn *badger.Txn) error {
		file, err := getFileTxn(txn, fileID)
		if err != nil {
			return err
		}
		if file.Deleted() {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "file not found",
				Ref:     fileID.String(),
			}
		}

		versionBytes, err := getValue(txn, keyVersion(fileID, number))
		if err == badger.ErrKeyNotFound {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: fmt.Sprintf("version %d not found", number),
				Ref:     fileID.String(),
			}
		}
		if err != nil {
			return err
		}

		version, err := decodeVersion(versionBytes)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("superseded by restore of version %d", number)
		if err := recordVersionTxn(txn, file, note, actorID, now); err != nil {
			return err
		}

		// Move the canonical refcount from the outgoing digest to the
		// incoming one. The incoming digest may have lost its canonical
		// record since the snapshot was taken; recreate it from the
		// snapshot, whose path is still valid (version rows keep their
		// blobs referenced against the collector).
		if err := releaseBlobRefTxn(txn, file.Digest); err != nil {
			return err
		}

		restoredPath, err := acquireBlobRefTxn(txn, version.Digest, version.StoragePath, version.Size, now)
		if err != nil {
			return err
		}

		sizeDelta := version.Size - file.Size

		if file.FolderID != nil && sizeDelta != 0 {
			folder, err := getFolderTxn(txn, *file.FolderID)
			if err != nil {
				return err
			}
			folder.TotalSizeBytes += sizeDelta
			folder.UpdatedAt = now
			if err := saveFolderTxn(txn, folder); err != nil {
				return err
			}
		}

		if sizeDelta != 0 {
			if err := adjustCounter(txn, keyUsage(file.OwnerID), sizeDelta); err != nil {
				return err
			}
		}

		file.Digest = version.Digest
		file.StoragePath = restoredPath
		file.Size = version.Size
		file.Version++
		file.UpdatedAt = now
		restored = file

		return saveFileTxn(txn, file)
	})
	if err != nil {
		return nil, err
	}

	return restored, nil
}

// releaseBlobRefTxn drops one reference from a digest's canonical record,
// removing the record when no live file references it anymore.
func releaseBlobRefTxn(txn *badger.Txn, digest string) error {
	refBytes, err := getValue(txn, keyBlobRef(digest))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	ref, err := decodeBlobRef(refBytes)
	if err != nil {
		return err
	}

	ref.RefCount--
	if ref.RefCount <= 0 {
		return txn.Delete(keyBlobRef(digest))
	}

	encoded, err := encodeBlobRef(ref)
	if err != nil {
		return err
	}
	return txn.Set(keyBlobRef(digest), encoded)
}

// acquireBlobRefTxn adds one reference to a digest's canonical record,
// creating the record at the given path when the digest has none. Returns
// the canonical storage path the caller must adopt.
func acquireBlobRefTxn(txn *badger.Txn, digest, path string, size int64, now time.Time) (string, error) {
	refBytes, err := getValue(txn, keyBlobRef(digest))
	if err == badger.ErrKeyNotFound {
		ref := &catalog.BlobRef{
			Digest:      digest,
			StoragePath: path,
			Size:        size,
			RefCount:    1,
			CreatedAt:   now,
		}
		encoded, err := encodeBlobRef(ref)
		if err != nil {
			return "", err
		}
		return path, txn.Set(keyBlobRef(digest), encoded)
	}
	if err != nil {
		return "", err
	}

	ref, err := decodeBlobRef(refBytes)
	if err != nil {
		return "", err
	}

	ref.RefCount++
	encoded, err := encodeBlobRef(ref)
	if err != nil {
		return "", err
	}
	return ref.StoragePath, txn.Set(keyBlobRef(digest), encoded)
}

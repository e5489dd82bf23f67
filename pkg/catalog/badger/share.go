package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
)

func getShareTxn(txn *badger.Txn, id uuid.UUID) (*catalog.Share, error) {
	bytes, err := getValue(txn, keyShare(id))
	if err == badger.ErrKeyNotFound {
		return nil, &catalog.StoreError{
			Code:    catalog.ErrNotFound,
			Message: "share not found",
			Ref:     id.String(),
		}
	}
	if err != nil {
		return nil, err
	}
	return decodeShare(bytes)
}

func saveShareTxn(txn *badger.Txn, share *catalog.Share) error {
	bytes, err := encodeShare(share)
	if err != nil {
		return err
	}
	return txn.Set(keyShare(share.ID), bytes)
}

func validateShare(share *catalog.Share) error {
	switch share.Grant.Kind {
	case catalog.GrantKindUser:
		if share.Grant.UserID == "" {
			return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "user grant requires a user"}
		}
	case catalog.GrantKindPublic:
		if share.Grant.Token == "" {
			return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "public grant requires a token"}
		}
	default:
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "unknown grant kind", Ref: string(share.Grant.Kind)}
	}

	if share.Permission != catalog.PermissionRead {
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "unknown permission", Ref: string(share.Permission)}
	}
	if share.GrantedBy == "" {
		return &catalog.StoreError{Code: catalog.ErrInvalidArgument, Message: "share requires a granting user"}
	}

	return nil
}

// CreateShare records a share grant. Public token grants additionally
// register the token for anonymous lookup. The target file must exist and
// be live.
func (c *BadgerCatalog) CreateShare(ctx context.Context, share *catalog.Share) (*catalog.Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateShare(share); err != nil {
		return nil, err
	}

	record := *share

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

		if record.Grant.Kind == catalog.GrantKindPublic {
			taken, err := exists(txn, keyShareToken(record.Grant.Token))
			if err != nil {
				return err
			}
			// 256-bit random tokens do not collide in practice; a hit
			// means token generation is broken and must not be masked.
			if taken {
				return &catalog.StoreError{
					Code:    catalog.ErrConflict,
					Message: "public token already registered",
				}
			}
			if err := txn.Set(keyShareToken(record.Grant.Token), encodeUUID(record.ID)); err != nil {
				return err
			}
		}

		if err := saveShareTxn(txn, &record); err != nil {
			return err
		}

		return txn.Set(keyFileShare(record.FileID, record.ID), nil)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetShare returns the share row.
func (c *BadgerCatalog) GetShare(ctx context.Context, id uuid.UUID) (*catalog.Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var share *catalog.Share

	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		share, err = getShareTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return share, nil
}

// FindShareByToken resolves a public token to its share. Revocation
// removes the token mapping, so revoked tokens stop resolving here.
func (c *BadgerCatalog) FindShareByToken(ctx context.Context, token string) (*catalog.Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var share *catalog.Share

	err := c.db.View(func(txn *badger.Txn) error {
		idBytes, err := getValue(txn, keyShareToken(token))
		if err == badger.ErrKeyNotFound {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "share not found",
			}
		}
		if err != nil {
			return err
		}

		id, err := decodeUUID(idBytes)
		if err != nil {
			return err
		}

		share, err = getShareTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return share, nil
}

// ListSharesForFile returns every share ever granted on the file,
// including expired and revoked ones.
func (c *BadgerCatalog) ListSharesForFile(ctx context.Context, fileID uuid.UUID) ([]*catalog.Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shares []*catalog.Share
	prefix := keyFileSharePrefix(fileID)

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

			share, err := getShareTxn(txn, id)
			if err != nil {
				return err
			}
			shares = append(shares, share)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shares, nil
}

// RecordShareAccess increments the share's access counter and stamps the
// last-access time.
func (c *BadgerCatalog) RecordShareAccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.update(ctx, func(txn *badger.Txn) error {
		share, err := getShareTxn(txn, id)
		if err != nil {
			return err
		}

		share.AccessCount++
		share.LastAccessedAt = &now

		return saveShareTxn(txn, share)
	})
}

// RevokeShare deactivates the share and unregisters its public token, if
// any.
func (c *BadgerCatalog) RevokeShare(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.update(ctx, func(txn *badger.Txn) error {
		share, err := getShareTxn(txn, id)
		if err != nil {
			return err
		}
		if share.RevokedAt != nil {
			return &catalog.StoreError{
				Code:    catalog.ErrNotFound,
				Message: "share not found",
				Ref:     id.String(),
			}
		}

		share.RevokedAt = &now

		if share.Grant.Kind == catalog.GrantKindPublic {
			if err := txn.Delete(keyShareToken(share.Grant.Token)); err != nil {
				return err
			}
		}

		return saveShareTxn(txn, share)
	})
}

// Package badger implements the metadata catalog on BadgerDB.
//
// BadgerDB's serializable snapshot isolation does the heavy lifting for
// the catalog's concurrency contract: every multi-row mutation runs inside
// one managed transaction, and conflicting transactions (two uploads
// bumping the same folder's aggregates, two inserts racing on one digest)
// are detected at commit and retried. Aggregate updates are therefore
// never lost and dedup races are absorbed rather than surfaced.
package badger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/drivevault/drivevault/pkg/catalog"
)

// BadgerCatalog implements catalog.Catalog using BadgerDB for persistence.
//
// Suitable for:
//   - Production deployments requiring metadata persistence across restarts
//   - Single-node operation (BadgerDB is embedded, not networked)
//   - Multi-GB metadata without an external database dependency
//
// Thread Safety:
// BadgerDB transactions use MVCC internally; the catalog adds no locking
// of its own. All operations are safe for concurrent use from multiple
// goroutines.
type BadgerCatalog struct {
	db *badger.DB
}

// BadgerCatalogConfig contains configuration for creating a BadgerDB
// catalog.
type BadgerCatalogConfig struct {
	// DBPath is the directory where BadgerDB stores its files (value log,
	// LSM tree, etc.). Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs the database without persistence. Used by tests and
	// throwaway environments.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// BadgerOptions allows full customization of BadgerDB behavior.
	// If nil, sensible defaults are derived from the fields above.
	BadgerOptions *badger.Options
}

// Transaction retry tuning. Conflicts are routine under write contention:
// every same-owner insert touches the owner's usage counter and every
// same-folder insert touches the folder aggregates, so a burst of
// concurrent uploads invalidates each other's snapshots. The loop backs
// off with jitter so colliding writers spread out and commit serially;
// the budget is sized so that exhaustion means the store is wedged, not
// merely busy.
const (
	maxTxnRetries     = 200
	txnBackoffInitial = time.Millisecond
	txnBackoffCeiling = 100 * time.Millisecond
)

// NewBadgerCatalog opens (or creates) the catalog database.
//
// The returned catalog is immediately ready for use and safe for
// concurrent access. Callers own the lifecycle: open at process start,
// Close at shutdown, inject into the orchestrator rather than sharing
// through package state.
//
// Parameters:
//   - ctx: Context for cancellation during initialization
//   - config: Database path, cache sizes, and option overrides
//
// Returns:
//   - *BadgerCatalog: A catalog ready for use
//   - error: Error if the database cannot be opened
func NewBadgerCatalog(ctx context.Context, config BadgerCatalogConfig) (*BadgerCatalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}

		// Catalog records are small JSON documents with frequent point
		// lookups and short range scans; compression overhead is not
		// worth it at this value size.
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database at %s: %w", config.DBPath, err)
	}

	return &BadgerCatalog{db: db}, nil
}

// Close closes the database and releases all resources. It waits for
// pending transactions and flushes to disk; the catalog must not be used
// afterwards.
func (c *BadgerCatalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close catalog database: %w", err)
	}
	return nil
}

// Healthcheck verifies the store can serve reads.
func (c *BadgerCatalog) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.db.IsClosed() {
		return &catalog.StoreError{
			Code:    catalog.ErrIOError,
			Message: "catalog database is closed",
		}
	}

	// A no-op view proves the transaction machinery is alive.
	return c.db.View(func(txn *badger.Txn) error { return nil })
}

// update runs fn inside a read-write transaction, retrying with jittered
// exponential backoff when BadgerDB detects a serialization conflict.
// Domain errors from fn pass through unchanged and are never retried.
func (c *BadgerCatalog) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	backoff := txnBackoffInitial

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.db.Update(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		// Sleep between half and one full backoff interval. Without the
		// jitter, writers that collided once keep colliding.
		delay := backoff/2 + time.Duration(rand.Int64N(int64(backoff)/2+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		backoff *= 2
		if backoff > txnBackoffCeiling {
			backoff = txnBackoffCeiling
		}
	}

	return &catalog.StoreError{
		Code:    catalog.ErrConflict,
		Message: "transaction retries exhausted",
	}
}

// getValue copies the value at key, translating a missing key into
// badger.ErrKeyNotFound for the caller to map onto its domain error.
func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// exists reports whether key is present.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// adjustCounter adds delta to the big-endian counter at key, treating a
// missing key as zero. Negative results clamp to zero so a replayed
// decrement cannot drive a counter below reality.
func adjustCounter(txn *badger.Txn, key []byte, delta int64) error {
	current := int64(0)

	bytes, err := getValue(txn, key)
	if err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	if err == nil {
		current, err = decodeInt64(bytes)
		if err != nil {
			return err
		}
	}

	next := current + delta
	if next < 0 {
		next = 0
	}

	return txn.Set(key, encodeInt64(next))
}

// Usage returns the owner's consumed bytes.
func (c *BadgerCatalog) Usage(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var usage int64

	err := c.db.View(func(txn *badger.Txn) error {
		bytes, err := getValue(txn, keyUsage(ownerID))
		if err == badger.ErrKeyNotFound {
			usage = 0
			return nil
		}
		if err != nil {
			return err
		}

		usage, err = decodeInt64(bytes)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read usage for %s: %w", ownerID, err)
	}

	return usage, nil
}

// ReferencedPaths returns every storage path referenced by any catalog
// row, live or soft-deleted, including version snapshots.
func (c *BadgerCatalog) ReferencedPaths(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{})

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFile)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				file, err := decodeFile(val)
				if err != nil {
					return err
				}
				referenced[file.StoragePath] = struct{}{}
				return nil
			})
			if err != nil {
				return err
			}
		}

		vopts := badger.DefaultIteratorOptions
		vopts.Prefix = []byte(prefixVersion)
		vit := txn.NewIterator(vopts)
		defer vit.Close()

		for vit.Rewind(); vit.Valid(); vit.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := vit.Item().Value(func(val []byte) error {
				version, err := decodeVersion(val)
				if err != nil {
					return err
				}
				referenced[version.StoragePath] = struct{}{}
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect referenced paths: %w", err)
	}

	return referenced, nil
}

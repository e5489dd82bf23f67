// Package gc reclaims orphaned blobs from durable storage.
//
// Normal operation never deletes blobs: soft-deleted files keep their
// bytes because deduplicated records and version snapshots may still
// reference them. Orphans therefore come only from uploads that wrote
// their blob but never committed a catalog row (cancelled requests,
// crashes between the blob write and the insert) and from dedup races
// whose loser wrote a duplicate under a path that never became canonical.
//
// The collector computes orphaned = existing - referenced, where the
// referenced set covers every catalog row: live files, soft-deleted
// files, and version snapshots. The catalog is the source of truth; a
// blob it does not know about is garbage.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/blob"
	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/metrics"
)

// Collector performs periodic garbage collection on the blob store.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	catalog catalog.Catalog
	blobs   blob.SweepableStore
	metrics metrics.DriveMetrics
	config  Config
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether garbage collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run a sweep (default: 24h).
	Interval time.Duration `mapstructure:"interval"`

	// BatchSize is how many orphaned blobs to delete per batch
	// (default: 1000, the S3 DeleteObjects ceiling).
	BatchSize int `mapstructure:"batch_size"`

	// DryRun logs what would be deleted without deleting it.
	DryRun bool `mapstructure:"dry_run"`
}

// NewCollector creates a garbage collector. The collector is initialized
// but not started; call Start to begin background sweeps.
func NewCollector(cat catalog.Catalog, blobs blob.SweepableStore, driveMetrics metrics.DriveMetrics, config Config) *Collector {
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}
	if driveMetrics == nil {
		driveMetrics = metrics.NewDriveMetrics()
	}

	return &Collector{
		catalog: cat,
		blobs:   blobs,
		metrics: driveMetrics,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins background garbage collection at the configured interval.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop stops the garbage collector and waits for the worker to finish,
// or for the context to expire. Safe to call when never started.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping garbage collector...")
	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep, blocking until it completes or the
// context is cancelled. Useful for tests and admin triggers.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.sweep(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.sweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// sweep performs a single mark-and-sweep pass:
//
//  1. List every path on the blob store.
//  2. Fetch every path the catalog references, live or not.
//  3. Compute orphaned = existing - referenced.
//  4. Batch-delete the orphans.
//
// The referenced set is fetched after the blob listing so an upload that
// commits mid-sweep is counted as referenced rather than orphaned.
func (c *Collector) sweep(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	existing, err := c.blobs.ListPaths(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list blobs: %w", err)
	}
	stats.ExistingCount = len(existing)

	referenced, err := c.catalog.ReferencedPaths(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get referenced paths: %w", err)
	}
	stats.ReferencedCount = len(referenced)

	orphaned := make([]string, 0)
	for _, path := range existing {
		if _, ok := referenced[path]; !ok {
			orphaned = append(orphaned, path)
		}
	}
	stats.OrphanedCount = len(orphaned)

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		c.metrics.RecordSweep(0, 0, stats.Duration())
		return stats, nil
	}

	logger.Info("GC: found %d orphaned blobs (%d existing, %d referenced)",
		stats.OrphanedCount, stats.ExistingCount, stats.ReferencedCount)

	if c.config.DryRun {
		for i, path := range orphaned {
			if i == 10 {
				logger.Info("GC: dry run ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("GC: dry run would delete %s", path)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		end := i + c.config.BatchSize
		if end > len(orphaned) {
			end = len(orphaned)
		}
		batch := orphaned[i:end]

		failures, err := c.blobs.RemoveBatch(ctx, batch)
		if err != nil {
			logger.Warn("GC: batch delete failed: %v", err)
			stats.FailedCount += len(batch)
			continue
		}

		stats.DeletedCount += len(batch) - len(failures)
		stats.FailedCount += len(failures)

		for path, ferr := range failures {
			logger.Debug("GC: failed to delete %s: %v", path, ferr)
		}
	}

	stats.EndTime = time.Now()
	c.metrics.RecordSweep(stats.DeletedCount, stats.FailedCount, stats.Duration())

	return stats, nil
}

// Stats contains statistics from one garbage collection pass.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount int
	ExistingCount   int
	OrphanedCount   int
	DeletedCount    int
	FailedCount     int
}

// Duration returns the total pass duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the pass.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}

// Package drive implements the orchestrator composing the digest, blob,
// catalog, access, and quota components into the public storage
// operations: upload, metadata fetch, download streaming, soft delete,
// folder CRUD, sharing, public links, versions, and the usage report.
//
// The orchestrator owns sequencing and policy; it never reaches around
// its collaborators. Authorization and quota decisions short-circuit
// before any blob write, the blob store sees only mechanical commands,
// and the catalog transaction is the single commit point for every
// mutation.
package drive

import (
	"strings"
	"time"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/blob"
	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/metrics"
	"github.com/drivevault/drivevault/pkg/quota"
)

// Service is the drive orchestrator. Construct with NewService; the zero
// value is not usable.
//
// Thread safety: safe for concurrent use. All shared state lives in the
// injected stores, which serialize their own mutations.
type Service struct {
	catalog catalog.Catalog
	blobs   blob.WritableStore
	quota   *quota.Accountant
	metrics metrics.DriveMetrics

	maxUploadBytes    int64
	blockedExtensions map[string]struct{}

	// now is injected so tests control timestamps and expiry decisions.
	now func() time.Time
}

// ServiceConfig contains the dependencies and policy knobs for the drive
// service.
type ServiceConfig struct {
	// Catalog is the metadata store. Required.
	Catalog catalog.Catalog

	// Blobs is the byte store. Required.
	Blobs blob.WritableStore

	// Quota is the admission accountant. Required.
	Quota *quota.Accountant

	// Metrics receives operation observations. Nil selects a no-op.
	Metrics metrics.DriveMetrics

	// MaxUploadBytes rejects larger payloads with PayloadTooLarge.
	// 0 means no ceiling.
	MaxUploadBytes int64

	// BlockedExtensions lists file-type suffixes (with or without the
	// leading dot, case-insensitive) rejected with InvalidMediaType.
	BlockedExtensions []string

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// NewService creates the drive orchestrator.
func NewService(config ServiceConfig) *Service {
	blocked := make(map[string]struct{}, len(config.BlockedExtensions))
	for _, ext := range config.BlockedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		blocked[ext] = struct{}{}
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	driveMetrics := config.Metrics
	if driveMetrics == nil {
		driveMetrics = metrics.NewDriveMetrics()
	}

	return &Service{
		catalog:           config.Catalog,
		blobs:             config.Blobs,
		quota:             config.Quota,
		metrics:           driveMetrics,
		maxUploadBytes:    config.MaxUploadBytes,
		blockedExtensions: blocked,
		now:               now,
	}
}

// slugify derives a URL-safe slug from a display name: lowercase
// alphanumerics with single dashes between runs of anything else.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// extensionOf extracts the lowercased file-type suffix including the dot,
// or "" when the name has none.
func extensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx:])
}

// logIntegrityFault reports a catalog row whose bytes are gone. Kept in
// one place so every occurrence carries the same shape for alerting.
func (s *Service) logIntegrityFault(fileID, path string) {
	logger.Error("integrity fault: catalog references missing blob file_id=%s path=%s", fileID, path)
	s.metrics.RecordIntegrityFault()
}

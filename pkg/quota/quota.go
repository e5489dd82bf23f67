// Package quota enforces the per-user storage ceiling.
//
// Usage is defined as the sum of declared sizes over a user's non-deleted
// files. Blob-level deduplication is deliberately not reflected: each
// logical file counts its full size against its uploader, so users pay
// for what they upload regardless of what the store physically keeps.
package quota

import (
	"context"
	"fmt"
)

// UsageReader supplies the consumed-bytes counter, normally the metadata
// catalog.
type UsageReader interface {
	Usage(ctx context.Context, ownerID string) (int64, error)
}

// Report is the per-user quota summary exposed to callers.
type Report struct {
	UsedBytes      int64 `json:"used_bytes"`
	CeilingBytes   int64 `json:"ceiling_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

// Accountant computes usage and answers the pre-upload admission check.
// The ceiling is a static configuration value applied to every user; 0
// means unlimited.
type Accountant struct {
	usage   UsageReader
	ceiling int64
}

// NewAccountant creates an accountant reading usage from the given source
// and enforcing the given ceiling in bytes.
func NewAccountant(usage UsageReader, ceilingBytes int64) *Accountant {
	return &Accountant{
		usage:   usage,
		ceiling: ceilingBytes,
	}
}

// Usage returns the owner's consumed bytes.
func (a *Accountant) Usage(ctx context.Context, ownerID string) (int64, error) {
	return a.usage.Usage(ctx, ownerID)
}

// WouldExceed reports whether adding additionalBytes to the owner's usage
// would break the ceiling. The boundary is inclusive: an upload landing
// exactly on the ceiling is admitted.
func (a *Accountant) WouldExceed(ctx context.Context, ownerID string, additionalBytes int64) (bool, error) {
	if a.ceiling <= 0 {
		return false, nil
	}

	used, err := a.usage.Usage(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to read usage for %s: %w", ownerID, err)
	}

	return used+additionalBytes > a.ceiling, nil
}

// Report returns the owner's quota summary. With an unlimited ceiling,
// CeilingBytes and RemainingBytes are 0 and -1 respectively.
func (a *Accountant) Report(ctx context.Context, ownerID string) (Report, error) {
	used, err := a.usage.Usage(ctx, ownerID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read usage for %s: %w", ownerID, err)
	}

	report := Report{
		UsedBytes:    used,
		CeilingBytes: a.ceiling,
	}
	if a.ceiling > 0 {
		report.RemainingBytes = a.ceiling - used
		if report.RemainingBytes < 0 {
			report.RemainingBytes = 0
		}
	} else {
		report.RemainingBytes = -1
	}

	return report, nil
}

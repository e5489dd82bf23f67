package drive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/catalog"
)

// ListVersions returns the file's historical snapshots in ascending
// version order. Owner-only: version history exposes content the owner
// may have deliberately replaced.
func (s *Service) ListVersions(ctx context.Context, fileID uuid.UUID, actor access.Actor) ([]*catalog.Version, error) {
	if _, err := s.ownedFile(ctx, fileID, actor); err != nil {
		return nil, err
	}

	versions, err := s.catalog.ListVersions(ctx, fileID)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	return versions, nil
}

// RestoreVersion rewinds the file's live content to the named snapshot.
// Owner-only.
//
// The history stays append-only: the pre-restore state is preserved as a
// new snapshot before the live pointer moves, so a restore can itself be
// undone. Quota charges follow the size delta; restoring a smaller
// version frees bytes, a larger one must still fit under the ceiling.
func (s *Service) RestoreVersion(ctx context.Context, fileID uuid.UUID, number int, actor access.Actor) (*catalog.File, error) {
	file, err := s.ownedFile(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}
	if number < 1 {
		return nil, fmt.Errorf("%w: version numbers start at 1", ErrInvalidInput)
	}
	if number == file.Version {
		return nil, fmt.Errorf("%w: version %d is already live", ErrInvalidInput, number)
	}

	versions, err := s.catalog.ListVersions(ctx, fileID)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	var target *catalog.Version
	for _, v := range versions {
		if v.Number == number {
			target = v
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: file %s has no version %d", ErrNotFound, fileID, number)
	}

	// Quota gate on growth before touching the catalog. The transaction
	// re-derives the delta itself; this check just keeps an over-ceiling
	// restore from committing.
	if delta := target.Size - file.Size; delta > 0 {
		exceed, err := s.quota.WouldExceed(ctx, file.OwnerID, delta)
		if err != nil {
			return nil, fmt.Errorf("quota check failed: %w", err)
		}
		if exceed {
			return nil, fmt.Errorf("%w: restore adds %d bytes", ErrQuotaExceeded, delta)
		}
	}

	restored, err := s.catalog.RestoreVersion(ctx, fileID, number, actor.UserID, s.now())
	if err != nil {
		return nil, mapCatalogErr(err)
	}

	logger.Info("version restored file_id=%s number=%d now_version=%d", fileID, number, restored.Version)
	return restored, nil
}

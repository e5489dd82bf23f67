package drive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/blob"
	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/quota"
)

// GetFile returns the file's metadata after the access check.
//
// Soft-deleted files report NotFound to everyone, including the owner.
// For authenticated actors, an existing but inaccessible file reports
// AccessDenied rather than NotFound; the anonymous token path collapses
// both (see DownloadByToken).
func (s *Service) GetFile(ctx context.Context, id uuid.UUID, actor access.Actor) (*catalog.File, error) {
	file, err := s.catalog.GetFile(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if file.Deleted() {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, id)
	}

	if err := s.authorizeRead(ctx, file, actor); err != nil {
		return nil, err
	}

	return file, nil
}

// authorizeRead runs the access predicate, loading the file's shares only
// when ownership and visibility cannot already decide.
func (s *Service) authorizeRead(ctx context.Context, file *catalog.File, actor access.Actor) error {
	now := s.now()

	if access.Evaluate(actor, file, catalog.PermissionRead, nil, now) {
		return nil
	}

	shares, err := s.catalog.ListSharesForFile(ctx, file.ID)
	if err != nil {
		return mapCatalogErr(err)
	}
	if access.Evaluate(actor, file, catalog.PermissionRead, shares, now) {
		return nil
	}

	return fmt.Errorf("%w: file %s", ErrAccessDenied, file.ID)
}

// Download returns the file's metadata and a stream of its bytes.
//
// The download counter and last-access stamp are recorded before the
// stream is handed back; the caller owns closing the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID, actor access.Actor) (*catalog.File, io.ReadCloser, error) {
	start := s.now()

	file, err := s.GetFile(ctx, id, actor)
	if err != nil {
		s.metrics.RecordDownload(0, s.now().Sub(start), err)
		return nil, nil, err
	}

	reader, err := s.openBlob(ctx, file)
	if err != nil {
		s.metrics.RecordDownload(0, s.now().Sub(start), err)
		return nil, nil, err
	}

	if err := s.catalog.RecordDownload(ctx, file.ID, s.now()); err != nil {
		// Counter updates must not fail a download the actor is entitled
		// to; the stream goes ahead and the miss is logged.
		logger.Warn("failed to record download file_id=%s: %v", file.ID, err)
	}

	s.metrics.RecordDownload(file.Size, s.now().Sub(start), nil)
	return file, reader, nil
}

// openBlob opens the file's bytes, translating an absent blob into the
// integrity-fault error.
func (s *Service) openBlob(ctx context.Context, file *catalog.File) (io.ReadCloser, error) {
	reader, err := s.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrBlobNotFound) {
			s.logIntegrityFault(file.ID.String(), file.StoragePath)
			return nil, fmt.Errorf("%w: file %s", ErrBlobMissing, file.ID)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return reader, nil
}

// DownloadByToken serves the anonymous public-link path.
//
// Every failure mode collapses to NotFound: an invalid token, an expired
// or revoked share, a deleted file, and a denied access all look
// identical, so a probing caller learns nothing about what exists. Only
// the integrity fault stays distinct, since it is a server error.
func (s *Service) DownloadByToken(ctx context.Context, token string) (*catalog.File, io.ReadCloser, error) {
	start := s.now()

	file, reader, share, err := s.downloadByToken(ctx, token)
	if err != nil {
		s.metrics.RecordDownload(0, s.now().Sub(start), err)
		return nil, nil, err
	}

	if err := s.catalog.RecordDownload(ctx, file.ID, s.now()); err != nil {
		logger.Warn("failed to record download file_id=%s: %v", file.ID, err)
	}
	if err := s.catalog.RecordShareAccess(ctx, share.ID, s.now()); err != nil {
		logger.Warn("failed to record share access share_id=%s: %v", share.ID, err)
	}

	s.metrics.RecordDownload(file.Size, s.now().Sub(start), nil)
	return file, reader, nil
}

func (s *Service) downloadByToken(ctx context.Context, token string) (*catalog.File, io.ReadCloser, *catalog.Share, error) {
	if token == "" {
		return nil, nil, nil, fmt.Errorf("%w: empty token", ErrNotFound)
	}

	share, err := s.catalog.FindShareByToken(ctx, token)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid token", ErrNotFound)
	}
	if !share.Active(s.now()) {
		return nil, nil, nil, fmt.Errorf("%w: invalid token", ErrNotFound)
	}

	file, err := s.catalog.GetFile(ctx, share.FileID)
	if err != nil || file.Deleted() {
		return nil, nil, nil, fmt.Errorf("%w: invalid token", ErrNotFound)
	}

	if !access.Evaluate(access.Actor{Token: token}, file, catalog.PermissionRead, []*catalog.Share{share}, s.now()) {
		return nil, nil, nil, fmt.Errorf("%w: invalid token", ErrNotFound)
	}

	reader, err := s.openBlob(ctx, file)
	if err != nil {
		return nil, nil, nil, err
	}

	return file, reader, share, nil
}

// DeleteFile soft-deletes the file. Owner-only: sharing grants access,
// never deletion rights.
func (s *Service) DeleteFile(ctx context.Context, id uuid.UUID, actor access.Actor) error {
	file, err := s.catalog.GetFile(ctx, id)
	if err != nil {
		return mapCatalogErr(err)
	}
	if file.Deleted() {
		return fmt.Errorf("%w: file %s", ErrNotFound, id)
	}
	if actor.Anonymous() || actor.UserID != file.OwnerID {
		return fmt.Errorf("%w: only the owner may delete", ErrNotOwner)
	}

	if err := s.catalog.SoftDeleteFile(ctx, id, s.now()); err != nil {
		return mapCatalogErr(err)
	}

	logger.Info("file deleted file_id=%s owner=%s", id, file.OwnerID)
	return nil
}

// ListFiles returns the actor's own files matching the filter. The owner
// scope is forced to the actor: listings never cross users.
func (s *Service) ListFiles(ctx context.Context, actor access.Actor, filter catalog.FileFilter) ([]*catalog.File, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: listing requires authentication", ErrAccessDenied)
	}

	filter.OwnerID = actor.UserID
	filter.IncludeDeleted = false

	files, err := s.catalog.ListFiles(ctx, filter)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	return files, nil
}

// Usage returns the actor's quota report.
func (s *Service) Usage(ctx context.Context, actor access.Actor) (quota.Report, error) {
	if actor.Anonymous() {
		return quota.Report{}, fmt.Errorf("%w: usage requires authentication", ErrAccessDenied)
	}
	return s.quota.Report(ctx, actor.UserID)
}

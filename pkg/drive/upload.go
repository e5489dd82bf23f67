package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/blob"
	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/digest"
)

// UploadRequest carries one upload. Content is read to completion before
// any commit decision: the digest and exact size must be known up front
// for dedup and the quota check.
type UploadRequest struct {
	Content  io.Reader
	Filename string

	// DeclaredSize is the client-declared payload size, used for the
	// fast-fail size gate. The authoritative size is measured from the
	// actual bytes.
	DeclaredSize int64

	OwnerID     string
	FolderID    *uuid.UUID
	Description string
	Tags        []string

	// Visibility defaults to private when empty.
	Visibility catalog.Visibility

	// MediaType is the client-declared content type; empty falls back to
	// application/octet-stream.
	MediaType string
}

// Upload runs the upload state machine:
//
//	received → hashing → deduplicating → (blob-write | blob-reuse)
//	         → cataloging → committed
//
// Gates fire in a fixed order before any blob write: payload size,
// blocked extension, quota. After a blob write, the catalog transaction
// is the only commit point; a failure there leaves at worst an orphaned
// blob for the collector, never a half-visible file.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*catalog.File, error) {
	start := s.now()

	file, reused, err := s.upload(ctx, req)
	if err != nil {
		s.metrics.RecordUpload(uploadOutcome(err), req.DeclaredSize, s.now().Sub(start))
		return nil, err
	}

	outcome := "committed"
	if reused {
		outcome = "deduplicated"
	}
	s.metrics.RecordUpload(outcome, file.Size, s.now().Sub(start))

	return file, nil
}

func (s *Service) upload(ctx context.Context, req UploadRequest) (*catalog.File, bool, error) {
	if req.OwnerID == "" {
		return nil, false, fmt.Errorf("%w: upload requires an owner", ErrInvalidInput)
	}
	if req.Filename == "" {
		return nil, false, fmt.Errorf("%w: upload requires a filename", ErrInvalidInput)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = catalog.VisibilityPrivate
	}
	if !catalog.ValidVisibility(visibility) {
		return nil, false, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
	}

	// Gate 1: declared size. The actual bytes are re-checked below; the
	// declared value just lets oversized uploads fail before transfer.
	if s.maxUploadBytes > 0 && req.DeclaredSize > s.maxUploadBytes {
		return nil, false, fmt.Errorf("%w: declared %d bytes, limit %d", ErrPayloadTooLarge, req.DeclaredSize, s.maxUploadBytes)
	}

	// Gate 2: blocked extension.
	extension := extensionOf(req.Filename)
	if _, blocked := s.blockedExtensions[extension]; blocked {
		return nil, false, fmt.Errorf("%w: extension %q is blocked", ErrInvalidMediaType, extension)
	}

	// Hashing: buffer the full payload, digesting it on the way in. Size
	// and digest must both be known before the quota gate and the dedup
	// lookup, so nothing can stream straight to storage here.
	payload, sum, err := s.readPayload(req.Content)
	if err != nil {
		return nil, false, err
	}
	size := int64(len(payload))

	// Gate 3: quota, checked against the measured size.
	exceed, err := s.quota.WouldExceed(ctx, req.OwnerID, size)
	if err != nil {
		return nil, false, fmt.Errorf("quota check failed: %w", err)
	}
	if exceed {
		return nil, false, fmt.Errorf("%w: %d additional bytes", ErrQuotaExceeded, size)
	}

	// Deduplicating: a canonical record means the bytes should already
	// be on storage under its path.
	path, reused, err := s.resolveStoragePath(ctx, sum, extension, payload)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	file := &catalog.File{
		ID:          uuid.New(),
		Name:        req.Filename,
		Slug:        slugify(req.Filename),
		Description: req.Description,
		Digest:      sum,
		StoragePath: path,
		MediaType:   mediaTypeOrDefault(req.MediaType),
		Size:        size,
		Extension:   extension,
		FolderID:    req.FolderID,
		OwnerID:     req.OwnerID,
		Visibility:  visibility,
		Tags:        req.Tags,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Cataloging: one transaction inserts the row, bumps folder
	// aggregates, and settles any dedup race. A loser's proposed path is
	// rewritten to the winner's; the extra blob it may have written is
	// reclaimable garbage, not corruption.
	inserted, err := s.catalog.InsertFile(ctx, file)
	if err != nil {
		return nil, false, mapCatalogErr(err)
	}

	logger.Info("upload committed file_id=%s owner=%s size=%d digest=%s", inserted.ID, inserted.OwnerID, inserted.Size, inserted.Digest)
	return inserted, reused, nil
}

// readPayload buffers the request body while hashing it in the same pass,
// enforcing the size ceiling on the actual bytes regardless of what was
// declared.
func (s *Service) readPayload(r io.Reader) ([]byte, string, error) {
	if r == nil {
		return nil, "", fmt.Errorf("%w: upload requires content", ErrInvalidInput)
	}

	limit := s.maxUploadBytes
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	var buf bytes.Buffer
	sum, n, err := digest.Reader(io.TeeReader(src, &buf))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload payload: %w", err)
	}
	if limit > 0 && n > limit {
		return nil, "", fmt.Errorf("%w: payload exceeds %d bytes", ErrPayloadTooLarge, limit)
	}

	return buf.Bytes(), sum, nil
}

// resolveStoragePath returns the canonical path for the digest, writing
// the blob when needed.
//
// On a dedup hit the blob's presence is verified rather than trusted; a
// missing blob behind a canonical record is repaired by rewriting it,
// since the payload in hand is by definition the same bytes.
func (s *Service) resolveStoragePath(ctx context.Context, sum, extension string, payload []byte) (string, bool, error) {
	ref, err := s.catalog.FindByDigest(ctx, sum)
	if err != nil {
		return "", false, fmt.Errorf("dedup lookup failed: %w", err)
	}

	path := blob.AllocatePath(sum, extension, s.now())
	if ref != nil {
		path = ref.StoragePath

		present, err := s.blobs.Exists(ctx, path)
		if err != nil {
			return "", false, fmt.Errorf("failed to verify blob presence: %w", err)
		}
		if present {
			return path, true, nil
		}

		// The payload in hand is the same bytes, so the missing blob is
		// repairable on the spot.
		s.logIntegrityFault("(canonical)", path)
	}

	if err := s.blobs.Write(ctx, path, bytes.NewReader(payload)); err != nil {
		return "", false, fmt.Errorf("failed to store blob: %w", err)
	}

	return path, false, nil
}

func mediaTypeOrDefault(mediaType string) string {
	if mediaType == "" {
		return "application/octet-stream"
	}
	return mediaType
}

// uploadOutcome maps a rejection to its metric label.
func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrInvalidMediaType):
		return "invalid_media_type"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrParentNotFound):
		return "parent_not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

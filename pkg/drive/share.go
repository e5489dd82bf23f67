package drive

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/catalog"
)

// tokenBytes is the entropy of a public link token. 32 bytes keeps token
// collisions out of the failure model entirely.
const tokenBytes = 32

// ShareFile grants a named user read access to the file. Owner-only; the
// owner cannot share with themselves.
func (s *Service) ShareFile(ctx context.Context, fileID uuid.UUID, actor access.Actor, granteeID string, expiresAt *time.Time) (*catalog.Share, error) {
	file, err := s.ownedFile(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}

	if granteeID == "" {
		return nil, fmt.Errorf("%w: share requires a grantee", ErrInvalidInput)
	}
	if granteeID == file.OwnerID {
		return nil, fmt.Errorf("%w: owner already has full access", ErrInvalidInput)
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}

	share := &catalog.Share{
		ID:         uuid.New(),
		FileID:     file.ID,
		Grant:      catalog.UserGrant(granteeID),
		Permission: catalog.PermissionRead,
		GrantedBy:  actor.UserID,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.now(),
	}

	created, err := s.catalog.CreateShare(ctx, share)
	if err != nil {
		return nil, mapCatalogErr(err)
	}

	logger.Info("share created share_id=%s file_id=%s grantee=%s", created.ID, fileID, granteeID)
	return created, nil
}

// CreatePublicLink mints an anonymous capability token for the file.
// Owner-only. The token is the whole secret: anyone holding it reads the
// file through the public endpoint until the link expires or is revoked.
func (s *Service) CreatePublicLink(ctx context.Context, fileID uuid.UUID, actor access.Actor, expiresAt *time.Time) (*catalog.Share, error) {
	file, err := s.ownedFile(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}

	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate link token: %w", err)
	}

	share := &catalog.Share{
		ID:         uuid.New(),
		FileID:     file.ID,
		Grant:      catalog.PublicGrant(token),
		Permission: catalog.PermissionRead,
		GrantedBy:  actor.UserID,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.now(),
	}

	created, err := s.catalog.CreateShare(ctx, share)
	if err != nil {
		return nil, mapCatalogErr(err)
	}

	logger.Info("public link created share_id=%s file_id=%s", created.ID, fileID)
	return created, nil
}

// RevokeShare deactivates a share or public link. Only the owner of the
// target file may revoke; revoking twice reports NotFound, matching the
// token's disappearance from the active set.
func (s *Service) RevokeShare(ctx context.Context, shareID uuid.UUID, actor access.Actor) error {
	share, err := s.catalog.GetShare(ctx, shareID)
	if err != nil {
		return mapCatalogErr(err)
	}

	file, err := s.catalog.GetFile(ctx, share.FileID)
	if err != nil {
		return mapCatalogErr(err)
	}
	if actor.Anonymous() || actor.UserID != file.OwnerID {
		return fmt.Errorf("%w: only the owner may revoke", ErrNotOwner)
	}

	if err := s.catalog.RevokeShare(ctx, shareID, s.now()); err != nil {
		return mapCatalogErr(err)
	}

	logger.Info("share revoked share_id=%s file_id=%s", shareID, share.FileID)
	return nil
}

// ListShares returns every share granted on the file, including expired
// and revoked ones. Owner-only.
func (s *Service) ListShares(ctx context.Context, fileID uuid.UUID, actor access.Actor) ([]*catalog.Share, error) {
	if _, err := s.ownedFile(ctx, fileID, actor); err != nil {
		return nil, err
	}

	shares, err := s.catalog.ListSharesForFile(ctx, fileID)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	return shares, nil
}

// ownedFile loads a live file and verifies the actor owns it.
func (s *Service) ownedFile(ctx context.Context, id uuid.UUID, actor access.Actor) (*catalog.File, error) {
	file, err := s.catalog.GetFile(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if file.Deleted() {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, id)
	}
	if actor.Anonymous() || actor.UserID != file.OwnerID {
		return nil, fmt.Errorf("%w: file %s", ErrNotOwner, id)
	}
	return file, nil
}

// generateToken returns a URL-safe random capability token.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

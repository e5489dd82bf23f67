package drive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/catalog"
)

// CreateFolderRequest carries one folder creation.
type CreateFolderRequest struct {
	Name        string
	Description string

	// ParentID nil creates the folder at the drive root.
	ParentID *uuid.UUID

	// Visibility defaults to private when empty.
	Visibility catalog.Visibility
}

// CreateFolder creates a folder owned by the actor. The catalog derives
// the materialized path and depth from the parent and enforces sibling
// name uniqueness.
func (s *Service) CreateFolder(ctx context.Context, actor access.Actor, req CreateFolderRequest) (*catalog.Folder, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: folder creation requires authentication", ErrAccessDenied)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: folder requires a name", ErrInvalidInput)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = catalog.VisibilityPrivate
	}
	if !catalog.ValidVisibility(visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
	}

	now := s.now()
	folder := &catalog.Folder{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
		OwnerID:     actor.UserID,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.catalog.CreateFolder(ctx, folder)
	if err != nil {
		return nil, mapCatalogErr(err)
	}

	logger.Info("folder created folder_id=%s owner=%s path=%s", created.ID, created.OwnerID, created.Path)
	return created, nil
}

// GetFolder returns the folder's metadata. Folders have no share grants;
// anyone but the owner sees NotFound unless the folder is public.
func (s *Service) GetFolder(ctx context.Context, id uuid.UUID, actor access.Actor) (*catalog.Folder, error) {
	folder, err := s.catalog.GetFolder(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if folder.Deleted() {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}

	if folder.Visibility != catalog.VisibilityPublic {
		if actor.Anonymous() || actor.UserID != folder.OwnerID {
			return nil, fmt.Errorf("%w: folder %s", ErrNotFound, id)
		}
	}

	return folder, nil
}

// UpdateFolderRequest carries the mutable folder fields. Nil fields are
// left unchanged.
type UpdateFolderRequest struct {
	Name        *string
	Description *string
	Visibility  *catalog.Visibility
}

// UpdateFolder applies the non-nil fields. Owner-only. A rename cascades
// the materialized path into every descendant folder.
func (s *Service) UpdateFolder(ctx context.Context, id uuid.UUID, actor access.Actor, req UpdateFolderRequest) (*catalog.Folder, error) {
	folder, err := s.ownedFolder(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("%w: folder name cannot be empty", ErrInvalidInput)
	}
	if req.Visibility != nil && !catalog.ValidVisibility(*req.Visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, *req.Visibility)
	}

	updated, err := s.catalog.UpdateFolder(ctx, folder.ID, catalog.FolderUpdate{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
	}, s.now())
	if err != nil {
		return nil, mapCatalogErr(err)
	}

	return updated, nil
}

// DeleteFolder soft-deletes an empty folder. Owner-only; fails with
// FolderNotEmpty while files or subfolders remain.
func (s *Service) DeleteFolder(ctx context.Context, id uuid.UUID, actor access.Actor) error {
	folder, err := s.ownedFolder(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.catalog.SoftDeleteFolder(ctx, folder.ID, s.now()); err != nil {
		return mapCatalogErr(err)
	}

	logger.Info("folder deleted folder_id=%s owner=%s", id, folder.OwnerID)
	return nil
}

// ListFolders returns the actor's folders matching the filter. The owner
// scope is forced to the actor.
func (s *Service) ListFolders(ctx context.Context, actor access.Actor, filter catalog.FolderFilter) ([]*catalog.Folder, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: listing requires authentication", ErrAccessDenied)
	}

	filter.OwnerID = actor.UserID

	folders, err := s.catalog.ListFolders(ctx, filter)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	return folders, nil
}

// ownedFolder loads a live folder and verifies the actor owns it.
func (s *Service) ownedFolder(ctx context.Context, id uuid.UUID, actor access.Actor) (*catalog.Folder, error) {
	folder, err := s.catalog.GetFolder(ctx, id)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if folder.Deleted() {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}
	if actor.Anonymous() || actor.UserID != folder.OwnerID {
		return nil, fmt.Errorf("%w: folder %s", ErrNotOwner, id)
	}
	return folder, nil
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/drive"
)

type createFolderRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
	Visibility  string  `json:"visibility"`
}

func (s *Server) createFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body requires a folder name")
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			writeBadRequest(c, "parent_id is not a valid UUID")
			return
		}
		parentID = &id
	}

	folder, err := s.service.CreateFolder(c.Request.Context(), actorFrom(c), drive.CreateFolderRequest{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    parentID,
		Visibility:  catalog.Visibility(req.Visibility),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, folder)
}

func (s *Server) listFolders(c *gin.Context) {
	filter := catalog.FolderFilter{
		RootOnly: c.Query("root") == "true",
	}

	if raw := c.Query("parent"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(c, "parent is not a valid UUID")
			return
		}
		filter.ParentID = &id
	}

	folders, err := s.service.ListFolders(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if folders == nil {
		folders = []*catalog.Folder{}
	}

	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (s *Server) getFolder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	folder, err := s.service.GetFolder(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, folder)
}

type updateFolderRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

func (s *Server) updateFolder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "malformed folder update")
		return
	}

	update := drive.UpdateFolderRequest{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Visibility != nil {
		v := catalog.Visibility(*req.Visibility)
		update.Visibility = &v
	}

	folder, err := s.service.UpdateFolder(c.Request.Context(), id, actorFrom(c), update)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, folder)
}

func (s *Server) deleteFolder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.service.DeleteFolder(c.Request.Context(), id, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

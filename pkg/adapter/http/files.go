package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/drive"
)

// uploadFile handles POST /api/files. The payload arrives as the "file"
// multipart part; metadata rides alongside as form fields.
func (s *Server) uploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeBadRequest(c, "multipart field 'file' is required")
		return
	}

	var folderID *uuid.UUID
	if raw := c.PostForm("folder_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(c, "folder_id is not a valid UUID")
			return
		}
		folderID = &id
	}

	content, err := header.Open()
	if err != nil {
		writeError(c, fmt.Errorf("failed to open upload part: %w", err))
		return
	}
	defer content.Close()

	file, err := s.service.Upload(c.Request.Context(), drive.UploadRequest{
		Content:      content,
		Filename:     header.Filename,
		DeclaredSize: header.Size,
		OwnerID:      actorFrom(c).UserID,
		FolderID:     folderID,
		Description:  c.PostForm("description"),
		Tags:         splitTags(c.PostForm("tags")),
		Visibility:   catalog.Visibility(c.PostForm("visibility")),
		MediaType:    header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, file)
}

// listFiles handles GET /api/files with optional folder, root, tags, and
// visibility filters.
func (s *Server) listFiles(c *gin.Context) {
	filter := catalog.FileFilter{
		Tags:     splitTags(c.Query("tags")),
		RootOnly: c.Query("root") == "true",
	}

	if raw := c.Query("folder"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(c, "folder is not a valid UUID")
			return
		}
		filter.FolderID = &id
	}
	if raw := c.Query("visibility"); raw != "" {
		v := catalog.Visibility(raw)
		if !catalog.ValidVisibility(v) {
			writeBadRequest(c, "unknown visibility "+raw)
			return
		}
		filter.Visibility = &v
	}

	files, err := s.service.ListFiles(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if files == nil {
		files = []*catalog.File{}
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) getFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	file, err := s.service.GetFile(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, file)
}

func (s *Server) downloadFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	file, reader, err := s.service.Download(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.MediaType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	})
}

func (s *Server) deleteFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.service.DeleteFile(c.Request.Context(), id, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) listVersions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	versions, err := s.service.ListVersions(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if versions == nil {
		versions = []*catalog.Version{}
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

type restoreRequest struct {
	Number int `json:"number" binding:"required"`
}

func (s *Server) restoreVersion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body requires a version number")
		return
	}

	file, err := s.service.RestoreVersion(c.Request.Context(), id, req.Number, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, file)
}

// pathID parses the :id path segment, writing the error response itself
// on failure.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeBadRequest(c, "id is not a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

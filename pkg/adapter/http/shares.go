package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drivevault/drivevault/pkg/catalog"
)

type shareRequest struct {
	GranteeID string     `json:"grantee_id" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) shareFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body requires a grantee_id")
		return
	}

	share, err := s.service.ShareFile(c.Request.Context(), id, actorFrom(c), req.GranteeID, req.ExpiresAt)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, share)
}

type linkRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

type linkResponse struct {
	*catalog.Share

	// URL is the resolvable anonymous download path for the token.
	URL string `json:"url"`
}

func (s *Server) createPublicLink(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeBadRequest(c, "malformed link request")
		return
	}

	share, err := s.service.CreatePublicLink(c.Request.Context(), id, actorFrom(c), req.ExpiresAt)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, linkResponse{
		Share: share,
		URL:   "/public/" + share.Grant.Token,
	})
}

func (s *Server) revokeShare(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.service.RevokeShare(c.Request.Context(), id, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) listShares(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	shares, err := s.service.ListShares(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if shares == nil {
		shares = []*catalog.Share{}
	}

	c.JSON(http.StatusOK, gin.H{"shares": shares})
}

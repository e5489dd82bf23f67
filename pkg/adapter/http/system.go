package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// publicDownload handles GET /public/:token, the anonymous capability
// path. The service collapses every failure to NotFound so the route
// leaks nothing about what exists.
func (s *Server) publicDownload(c *gin.Context) {
	file, reader, err := s.service.DownloadByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.MediaType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Name),
	})
}

func (s *Server) usage(c *gin.Context) {
	report, err := s.service.Usage(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.catalog.Healthcheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

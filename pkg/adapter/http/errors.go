package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/pkg/drive"
)

// errorBody is the structured error envelope: a machine-readable kind
// plus a human-readable message.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps a service sentinel onto a status code and writes the
// structured body. Unknown errors become opaque 500s so internals never
// leak to clients.
func writeError(c *gin.Context, err error) {
	status, kind := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal error"
	}

	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Kind:    kind,
		Message: message,
	}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, drive.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, drive.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, drive.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, drive.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, drive.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, "quota_exceeded"
	case errors.Is(err, drive.ErrInvalidMediaType):
		return http.StatusUnsupportedMediaType, "invalid_media_type"
	case errors.Is(err, drive.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, drive.ErrFolderNotEmpty):
		return http.StatusConflict, "folder_not_empty"
	case errors.Is(err, drive.ErrParentNotFound):
		return http.StatusBadRequest, "parent_not_found"
	case errors.Is(err, drive.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, drive.ErrBlobMissing):
		// Integrity fault: the service already logged it distinctly.
		return http.StatusInternalServerError, "integrity_fault"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeBadRequest reports a request the handler could not even parse.
func writeBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: errorDetail{
		Kind:    "invalid_input",
		Message: message,
	}})
}

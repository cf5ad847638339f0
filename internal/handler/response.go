package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/middleware"
	"readinglist/backend/internal/service"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func writeInvalidBody(c *gin.Context, err error) {
	writeError(c, &apperrors.APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_json",
		Message: "invalid request body",
		Details: err.Error(),
	})
}

// respond writes body on success. A storage error still carries the applied
// result in its details, since the change stays in memory.
func respond(c *gin.Context, status int, body any, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(status, body)
		return
	}
	if apperrors.IsCode(apiErr, "storage_error") && body != nil {
		apiErr.Details = body
	}
	writeError(c, apiErr)
}

// workspaceFor resolves the caller's workspace. On failure it writes the
// error and reports false.
func workspaceFor(c *gin.Context, registry *service.Registry) (*service.Workspace, bool) {
	ws, apiErr := registry.Workspace(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return nil, false
	}
	return ws, true
}

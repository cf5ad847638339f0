package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"readinglist/backend/internal/service"
)

// ProgressHandler serves the read-only achievement and statistics views.
type ProgressHandler struct {
	registry *service.Registry
}

func NewProgressHandler(registry *service.Registry) *ProgressHandler {
	return &ProgressHandler{registry: registry}
}

func (h *ProgressHandler) Achievements(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress":     ws.Progress(),
		"achievements": ws.Achievements(),
	})
}

func (h *ProgressHandler) Stats(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":    ws.Stats(),
		"overview": ws.Overview(),
	})
}

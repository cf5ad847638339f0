package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/service"
)

type SessionHandler struct {
	registry *service.Registry
}

type startSessionRequest struct {
	ItemID string `json:"itemId" binding:"required"`
}

func NewSessionHandler(registry *service.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Session())
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validation("itemId is required"))
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	view, apiErr := ws.StartSession(c.Request.Context(), req.ItemID)
	respond(c, http.StatusOK, view, apiErr)
}

func (h *SessionHandler) End(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	view, apiErr := ws.EndSession(c.Request.Context())
	respond(c, http.StatusOK, view, apiErr)
}

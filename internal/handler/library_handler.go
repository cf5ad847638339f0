package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/model"
	"readinglist/backend/internal/query"
	"readinglist/backend/internal/service"
)

const dateLayout = "2006-01-02"

type LibraryHandler struct {
	registry *service.Registry
	location *time.Location
}

type addItemRequest struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Tags     []string `json:"tags"`
	Priority string   `json:"priority" binding:"omitempty,oneof=low medium high"`
}

type updateItemRequest struct {
	Title    *string   `json:"title"`
	URL      *string   `json:"url"`
	Tags     *[]string `json:"tags"`
	Status   *string   `json:"status" binding:"omitempty,oneof=unread reading completed"`
	Progress *int      `json:"progress"`
	Priority *string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	Notes    *string   `json:"notes"`
}

type listItemsQuery struct {
	Status      string   `form:"status" binding:"omitempty,oneof=all unread reading completed"`
	Priorities  []string `form:"priority" binding:"dive,oneof=low medium high"`
	ProgressMin *int     `form:"progressMin"`
	ProgressMax *int     `form:"progressMax"`
	From        string   `form:"from"`
	To          string   `form:"to"`
	Tags        []string `form:"tag"`
	TagsMode    string   `form:"tagsMode" binding:"omitempty,oneof=any all"`
	Query       string   `form:"q"`
	Sort        string   `form:"sort"`
}

func NewLibraryHandler(registry *service.Registry, location *time.Location) *LibraryHandler {
	if location == nil {
		location = time.Local
	}
	return &LibraryHandler{registry: registry, location: location}
}

func (h *LibraryHandler) ListItems(c *gin.Context) {
	var q listItemsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, apperrors.Validation(err.Error()))
		return
	}
	spec, apiErr := h.buildSpec(q)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.FilteredItems(spec))
}

func (h *LibraryHandler) buildSpec(q listItemsQuery) (query.Spec, *apperrors.APIError) {
	spec := query.DefaultSpec()
	if q.Status != "" {
		spec.Status = q.Status
	}
	for _, p := range q.Priorities {
		spec.Priorities = append(spec.Priorities, model.Priority(p))
	}
	if q.ProgressMin != nil {
		spec.ProgressMin = model.ClampProgress(*q.ProgressMin)
	}
	if q.ProgressMax != nil {
		spec.ProgressMax = model.ClampProgress(*q.ProgressMax)
	}
	spec.Tags = model.NormalizeTags(q.Tags)
	if q.TagsMode != "" {
		spec.TagsMode = query.TagsMode(q.TagsMode)
	}
	spec.Query = q.Query

	if q.Sort != "" {
		field, order, err := query.ParseSort(q.Sort)
		if err != nil {
			return query.Spec{}, apperrors.Validation(err.Error())
		}
		spec.SortBy, spec.Order = field, order
	}

	var apiErr *apperrors.APIError
	if spec.From, apiErr = h.parseBound(q.From, "from", false); apiErr != nil {
		return query.Spec{}, apiErr
	}
	if spec.To, apiErr = h.parseBound(q.To, "to", true); apiErr != nil {
		return query.Spec{}, apiErr
	}
	return spec, nil
}

// parseBound accepts RFC 3339 or a bare date. A bare upper bound covers the
// whole of that day.
func (h *LibraryHandler) parseBound(raw, name string, endOfDay bool) (*time.Time, *apperrors.APIError) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, h.location)
	if err != nil {
		return nil, apperrors.Validation(name + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func (h *LibraryHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validation(err.Error()))
		return
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	result, apiErr := ws.AddItem(c.Request.Context(), service.AddItemInput{
		Title:    req.Title,
		URL:      req.URL,
		Tags:     req.Tags,
		Priority: model.Priority(req.Priority),
	})
	respond(c, http.StatusCreated, result, apiErr)
}

func (h *LibraryHandler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validation(err.Error()))
		return
	}

	input := service.UpdateItemInput{
		Title:    req.Title,
		URL:      req.URL,
		Tags:     req.Tags,
		Progress: req.Progress,
		Notes:    req.Notes,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		input.Priority = &priority
	}

	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	result, apiErr := ws.UpdateItem(c.Request.Context(), c.Param("id"), input)
	respond(c, http.StatusOK, result, apiErr)
}

func (h *LibraryHandler) DeleteItem(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	result, apiErr := ws.DeleteItem(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, result, apiErr)
}

func (h *LibraryHandler) RestoreItem(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	result, apiErr := ws.UndoDelete(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, result, apiErr)
}

func (h *LibraryHandler) GetItem(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	item, apiErr := ws.Item(c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *LibraryHandler) ListTags(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": ws.Tags()})
}

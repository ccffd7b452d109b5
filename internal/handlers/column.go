package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/middleware"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/pkg/response"
)

type ColumnHandler struct {
	columnService *services.ColumnService
}

func NewColumnHandler(columnService *services.ColumnService) *ColumnHandler {
	return &ColumnHandler{columnService: columnService}
}

type reorderColumnRequest struct {
	Position int `json:"position" binding:"required,min=1"`
}

// List handles GET /api/projects/:id/columns
func (h *ColumnHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	columns, err := h.columnService.List(projectID, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, columns)
}

// Create handles POST /api/projects/:id/columns
func (h *ColumnHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	column, err := h.columnService.Create(projectID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, column)
}

// Update handles PUT /api/projects/:id/columns/:columnId
func (h *ColumnHandler) Update(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	columnID, ok := parseID(c, "columnId")
	if !ok {
		return
	}

	var req services.UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	column, err := h.columnService.Update(projectID, columnID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, column)
}

// Delete handles DELETE /api/projects/:id/columns/:columnId
func (h *ColumnHandler) Delete(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	columnID, ok := parseID(c, "columnId")
	if !ok {
		return
	}

	if err := h.columnService.Delete(projectID, columnID, middleware.GetUserID(c)); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "column deleted"})
}

// Reorder handles PUT /api/projects/:id/columns/:columnId/position
func (h *ColumnHandler) Reorder(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	columnID, ok := parseID(c, "columnId")
	if !ok {
		return
	}

	var req reorderColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "position is required")
		return
	}

	if err := h.columnService.Reorder(projectID, columnID, req.Position, middleware.GetUserID(c)); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "column reordered"})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/middleware"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/pkg/response"
)

type IssueHandler struct {
	issueService *services.IssueService
}

func NewIssueHandler(issueService *services.IssueService) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

// List handles GET /api/projects/:id/issues
func (h *IssueHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	issues, err := h.issueService.List(projectID, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, issues)
}

// Get handles GET /api/projects/:id/issues/:issueId
func (h *IssueHandler) Get(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	issueID, ok := parseID(c, "issueId")
	if !ok {
		return
	}

	issue, err := h.issueService.GetByID(projectID, issueID, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, issue)
}

// Create handles POST /api/projects/:id/issues
func (h *IssueHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "column_id and title are required")
		return
	}

	issue, err := h.issueService.Create(projectID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, issue)
}

// Update handles PUT /api/projects/:id/issues/:issueId
func (h *IssueHandler) Update(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	issueID, ok := parseID(c, "issueId")
	if !ok {
		return
	}

	var req services.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Update(projectID, issueID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, issue)
}

// Move handles PUT /api/projects/:id/issues/:issueId/move
func (h *IssueHandler) Move(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	issueID, ok := parseID(c, "issueId")
	if !ok {
		return
	}

	var req services.MoveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "column_id and position are required")
		return
	}

	issue, err := h.issueService.Move(projectID, issueID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, issue)
}

// Delete handles DELETE /api/projects/:id/issues/:issueId
func (h *IssueHandler) Delete(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	issueID, ok := parseID(c, "issueId")
	if !ok {
		return
	}

	if err := h.issueService.Delete(projectID, issueID, middleware.GetUserID(c)); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "issue deleted"})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/middleware"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/pkg/response"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type acceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// Create handles POST /api/projects/:id/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and role are required")
		return
	}

	result, err := h.invitationService.Create(projectID, &req, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	// Delivery failure is a warning, not an error: the invitation exists and
	// can still be revoked and re-sent.
	response.Created(c, result)
}

// List handles GET /api/projects/:id/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListPending(projectID, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, invitations)
}

// Revoke handles DELETE /api/invitations/:id
func (h *InvitationHandler) Revoke(c *gin.Context) {
	invitationID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.Revoke(invitationID, middleware.GetUserID(c)); err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "invitation revoked"})
}

// Accept handles POST /api/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}

	result, err := h.invitationService.Accept(req.Token, middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, result)
}

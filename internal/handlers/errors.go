package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/pkg/response"
)

// serviceError maps service-layer sentinel errors onto the HTTP contract.
// Authorization denials arrive as ErrNotFound so unauthorized callers cannot
// distinguish "hidden" from "missing".
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, "resource not found")
	case errors.Is(err, services.ErrInvitationInvalid):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrEmailMismatch):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvitationAccepted):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrSelfTarget):
		response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserDisabled):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidRefresh):
		response.Unauthorized(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/pkg/response"
)

// SystemHandler is the admin-only surface for logs and runtime configuration.
type SystemHandler struct {
	logService    *services.SystemLogService
	configService *services.SystemConfigService
	ldapService   *services.LDAPService
}

func NewSystemHandler(logService *services.SystemLogService, configService *services.SystemConfigService, ldapService *services.LDAPService) *SystemHandler {
	return &SystemHandler{
		logService:    logService,
		configService: configService,
		ldapService:   ldapService,
	}
}

// ListLogs handles GET /api/admin/logs
func (h *SystemHandler) ListLogs(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.logService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// ListLogModules handles GET /api/admin/logs/modules
func (h *SystemHandler) ListLogModules(c *gin.Context) {
	modules, err := h.logService.GetModules()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, modules)
}

// CleanupLogs handles POST /api/admin/logs/cleanup
func (h *SystemHandler) CleanupLogs(c *gin.Context) {
	days := h.logService.GetRetentionDays()
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(c, "invalid days")
			return
		}
		days = parsed
	}

	deleted, err := h.logService.CleanupOldLogs(days)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"deleted": deleted, "days": days})
}

// GetEmailConfig handles GET /api/admin/config/email
func (h *SystemHandler) GetEmailConfig(c *gin.Context) {
	response.Success(c, h.configService.GetEmailConfig())
}

// UpdateEmailConfig handles PUT /api/admin/config/email
func (h *SystemHandler) UpdateEmailConfig(c *gin.Context) {
	var req services.UpdateEmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateEmailConfig(&req); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, h.configService.GetEmailConfig())
}

// GetLDAPConfig handles GET /api/admin/config/ldap
func (h *SystemHandler) GetLDAPConfig(c *gin.Context) {
	response.Success(c, h.configService.GetLDAPConfig())
}

// UpdateLDAPConfig handles PUT /api/admin/config/ldap
func (h *SystemHandler) UpdateLDAPConfig(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, h.configService.GetLDAPConfig())
}

// TestLDAP handles POST /api/admin/config/ldap/test
func (h *SystemHandler) TestLDAP(c *gin.Context) {
	if err := h.ldapService.TestConnection(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "ldap connection ok"})
}

package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/middleware"
	"github.com/kanbanio/taskboard/internal/models"
	"github.com/kanbanio/taskboard/internal/services"
	"github.com/kanbanio/taskboard/internal/utils"
	"github.com/kanbanio/taskboard/pkg/response"
	"gorm.io/gorm"
)

// UserHandler is the admin-only user management surface.
type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type userListRequest struct {
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	Search   string `form:"search"`
}

type updateUserRequest struct {
	Nickname *string `json:"nickname"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// List handles GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var req userListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var users []models.User
	var total int64

	query := h.db.Model(&models.User{})
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR nickname LIKE ?", like, like, like)
	}
	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&users).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
		"items":     users,
	})
}

// Update handles PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		response.NotFound(c, "user not found")
		return
	}

	updates := make(map[string]interface{})
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			response.BadRequest(c, "invalid role")
			return
		}
		if user.ID == middleware.GetUserID(c) && *req.Role != models.RoleAdmin {
			response.BadRequest(c, "cannot demote yourself")
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		if user.ID == middleware.GetUserID(c) && !*req.IsActive {
			response.BadRequest(c, "cannot disable yourself")
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		if user.AuthType != models.AuthTypeLocal {
			response.BadRequest(c, "password is managed by the directory server")
			return
		}
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			response.ServerError(c, err.Error())
			return
		}
		updates["password"] = hashed
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "Duplicate") {
				response.Conflict(c, "username or email already exists")
				return
			}
			response.ServerError(c, err.Error())
			return
		}
	}

	actorID := middleware.GetUserID(c)
	services.SystemLogInfo("user", "update", "Updated user "+user.Username, &actorID)
	response.Success(c, user)
}

// Delete handles DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if id == middleware.GetUserID(c) {
		response.BadRequest(c, "cannot delete yourself")
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		response.NotFound(c, "user not found")
		return
	}

	// Projects owned by the user go with them; memberships elsewhere are
	// removed so boards do not show ghost members.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var projects []models.Project
		if err := tx.Where("owner_id = ?", user.ID).Find(&projects).Error; err != nil {
			return err
		}
		for _, p := range projects {
			for _, m := range []interface{}{&models.Issue{}, &models.BoardColumn{}, &models.Invitation{}, &models.ProjectMember{}} {
				if err := tx.Where("project_id = ?", p.ID).Delete(m).Error; err != nil {
					return err
				}
			}
			if err := tx.Delete(&models.Project{}, p.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	actorID := middleware.GetUserID(c)
	services.SystemLogInfo("user", "delete", "Deleted user "+user.Username, &actorID)
	response.Success(c, gin.H{"message": "user deleted"})
}

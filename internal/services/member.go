package services

import (
	"errors"
	"fmt"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/gorm"
)

type MemberService struct {
	db     *gorm.DB
	access *AccessService
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db, access: NewAccessService(db)}
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// List returns all accepted members of a project, owner first.
func (s *MemberService) List(projectID, userID uint) ([]models.ProjectMember, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := s.db.Where("project_id = ? AND joined_at IS NOT NULL", projectID).
		Preload("User").
		Order("role ASC, joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ChangeRole updates a member's role. Owner only. Self-targeting is refused
// so an owner cannot demote themself out of the project.
func (s *MemberService) ChangeRole(projectID, memberID uint, role string, actorID uint) (*models.ProjectMember, error) {
	if !models.ValidRole(role) {
		return nil, errors.New("invalid role, must be 'owner' or 'contributor'")
	}

	if err := s.access.RequireManage(projectID, actorID); err != nil {
		return nil, err
	}

	member, err := s.find(projectID, memberID)
	if err != nil {
		return nil, err
	}
	if member.UserID == actorID {
		return nil, ErrSelfTarget
	}

	if err := s.db.Model(member).Update("role", role).Error; err != nil {
		return nil, err
	}

	SystemLogInfo("member", "change_role",
		fmt.Sprintf("changed role of user %d in project %d to %s", member.UserID, projectID, role),
		&actorID)

	s.db.Preload("User").First(member, member.ID)
	return member, nil
}

// Remove deletes a membership. Owner only; an owner cannot remove themself,
// which would leave the project ownerless.
func (s *MemberService) Remove(projectID, memberID, actorID uint) error {
	if err := s.access.RequireManage(projectID, actorID); err != nil {
		return err
	}

	member, err := s.find(projectID, memberID)
	if err != nil {
		return err
	}
	if member.UserID == actorID {
		return ErrSelfTarget
	}

	if err := s.db.Delete(member).Error; err != nil {
		return err
	}

	SystemLogInfo("member", "remove",
		fmt.Sprintf("removed user %d from project %d", member.UserID, projectID),
		&actorID)
	return nil
}

func (s *MemberService) find(projectID, memberID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.Where("project_id = ?", projectID).First(&member, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

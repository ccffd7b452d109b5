package services

import (
	"errors"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/gorm"
)

// AuthDecision is the result of an authorization check. Reason is only set
// on denial and is for logs, never for API responses (denied callers see a
// plain not-found).
type AuthDecision struct {
	Allowed bool
	Reason  string
}

func Allow() AuthDecision {
	return AuthDecision{Allowed: true}
}

func Deny(reason string) AuthDecision {
	return AuthDecision{Allowed: false, Reason: reason}
}

// IsOwner reports whether userID owns the project. Pure.
func IsOwner(project *models.Project, userID uint) bool {
	return project != nil && project.OwnerID == userID
}

// IsActiveMember reports whether the membership row represents an accepted
// member. Pure; a nil row or a row without joined_at is not a member.
func IsActiveMember(member *models.ProjectMember) bool {
	return member != nil && member.IsActive()
}

// AccessService answers "may this user touch this project" for the rest of
// the service layer. It loads the project and the caller's membership row
// once and applies the pure predicates above; the predicates never call back
// into gated operations, so checks cannot recurse.
type AccessService struct {
	db *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// CanView allows project owners and accepted members. Read-class operations
// on project-scoped resources gate on this.
func (s *AccessService) CanView(projectID, userID uint) (AuthDecision, error) {
	project, member, err := s.load(projectID, userID)
	if err != nil {
		return Deny("load failed"), err
	}
	if project == nil {
		return Deny("project does not exist"), nil
	}
	if IsOwner(project, userID) {
		return Allow(), nil
	}
	if IsActiveMember(member) {
		return Allow(), nil
	}
	return Deny("not a member"), nil
}

// CanManage allows project owners only. Privileged operations (invite,
// revoke, role changes, member removal, project update/delete) gate on this.
func (s *AccessService) CanManage(projectID, userID uint) (AuthDecision, error) {
	project, _, err := s.load(projectID, userID)
	if err != nil {
		return Deny("load failed"), err
	}
	if project == nil {
		return Deny("project does not exist"), nil
	}
	if IsOwner(project, userID) {
		return Allow(), nil
	}
	return Deny("not the owner"), nil
}

// RequireView is CanView collapsed to the not-found error contract.
func (s *AccessService) RequireView(projectID, userID uint) error {
	decision, err := s.CanView(projectID, userID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return ErrNotFound
	}
	return nil
}

// RequireManage is CanManage collapsed to the not-found error contract.
func (s *AccessService) RequireManage(projectID, userID uint) error {
	decision, err := s.CanManage(projectID, userID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return ErrNotFound
	}
	return nil
}

// load fetches the project and the single (project, user) membership row.
// Both lookups are plain primary/unique index reads; neither passes through
// an authorization check itself.
func (s *AccessService) load(projectID, userID uint) (*models.Project, *models.ProjectMember, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var member models.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &project, nil, nil
	}
	if err != nil {
		return &project, nil, err
	}
	return &project, &member, nil
}

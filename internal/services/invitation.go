package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kanbanio/taskboard/internal/models"
	"github.com/kanbanio/taskboard/pkg/logger"
	"gorm.io/gorm"
)

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

type InvitationService struct {
	db      *gorm.DB
	access  *AccessService
	queue   TaskQueue
	baseURL string
}

func NewInvitationService(db *gorm.DB, queue TaskQueue, baseURL string) *InvitationService {
	return &InvitationService{
		db:      db,
		access:  NewAccessService(db),
		queue:   queue,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// CreateInvitationResult carries the created invitation plus the delivery
// outcome. EmailSent=false is a warning for the inviter, never a failure:
// the invitation row is durable regardless.
type CreateInvitationResult struct {
	Invitation *models.Invitation `json:"invitation"`
	EmailSent  bool               `json:"email_sent"`
}

type AcceptInvitationResult struct {
	ProjectID uint   `json:"project_id"`
	Role      string `json:"role"`
}

// Create issues a new invitation for (project, email). Owner only. Any prior
// pending invitation for the same pair is superseded in the same transaction,
// so there is never more than one live token per invitee.
func (s *InvitationService) Create(projectID uint, req *CreateInvitationRequest, inviterID uint) (*CreateInvitationResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email address is required")
	}
	if !models.ValidRole(req.Role) {
		return nil, errors.New("invalid role, must be 'owner' or 'contributor'")
	}

	if err := s.access.RequireManage(projectID, inviterID); err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, err
	}
	var inviter models.User
	if err := s.db.First(&inviter, inviterID).Error; err != nil {
		return nil, err
	}

	token := uuid.NewString()
	invitation := models.Invitation{
		ProjectID: projectID,
		Email:     email,
		Role:      req.Role,
		InvitedBy: inviterID,
		TokenHash: hashInvitationToken(token),
		ExpiresAt: time.Now().Add(InvitationTTL),
	}

	// Supersession: delete-then-insert must be atomic so a concurrent reader
	// never observes zero or two live invitations for the pair.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND email = ? AND accepted_at IS NULL", projectID, email).
			Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Create(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	inviterName := inviter.Nickname
	if inviterName == "" {
		inviterName = inviter.Username
	}

	task := &InvitationEmailTask{
		Email:       email,
		Role:        req.Role,
		ProjectName: project.Name,
		InviterName: inviterName,
		AcceptURL:   s.acceptURL(token),
	}

	emailSent := true
	if err := s.queue.Enqueue(task); err != nil {
		// Delivery failure never rolls back the invitation.
		emailSent = false
		logger.Warn().
			Err(err).
			Uint("project_id", projectID).
			Str("email", email).
			Msg("invitation created but email delivery failed")
	}

	SystemLogInfo("invitation", "create",
		fmt.Sprintf("invited %s to project %q as %s", email, project.Name, req.Role),
		&inviterID)

	return &CreateInvitationResult{Invitation: &invitation, EmailSent: emailSent}, nil
}

// ListPending returns open invitations for a project. Expired rows are
// filtered out here rather than swept by a background job.
func (s *InvitationService) ListPending(projectID, userID uint) ([]models.Invitation, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	var invitations []models.Invitation
	if err := s.db.
		Where("project_id = ? AND accepted_at IS NULL AND expires_at > ?", projectID, time.Now()).
		Preload("Inviter").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// Revoke deletes a pending invitation. Owner only.
func (s *InvitationService) Revoke(invitationID, actorID uint) error {
	var invitation models.Invitation
	if err := s.db.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.access.RequireManage(invitation.ProjectID, actorID); err != nil {
		return err
	}
	if invitation.AcceptedAt != nil {
		return ErrInvitationAccepted
	}

	if err := s.db.Delete(&invitation).Error; err != nil {
		return err
	}

	SystemLogInfo("invitation", "revoke",
		fmt.Sprintf("revoked invitation for %s", invitation.Email), &actorID)
	return nil
}

// Accept redeems an invitation token for the calling user. Membership upsert
// and invitation consumption happen in one transaction; the conditional
// update on accepted_at guards against two concurrent acceptances of the
// same token. Exactly one wins, the other sees a conflict.
func (s *InvitationService) Accept(token string, userID uint) (*AcceptInvitationResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationInvalid
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	hash := hashInvitationToken(token)
	result := &AcceptInvitationResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invitation models.Invitation
		if err := tx.Where("token_hash = ?", hash).First(&invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationInvalid
			}
			return err
		}

		now := time.Now()
		if invitation.AcceptedAt != nil {
			return ErrInvitationAccepted
		}
		if invitation.IsExpired(now) {
			return ErrInvitationInvalid
		}
		// The invitation stays pending on a mismatch so the correct
		// identity can still accept later.
		if invitation.Email != strings.ToLower(user.Email) {
			return ErrEmailMismatch
		}

		var member models.ProjectMember
		err := tx.Where("project_id = ? AND user_id = ?", invitation.ProjectID, user.ID).
			First(&member).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.ProjectMember{
				ProjectID: invitation.ProjectID,
				UserID:    user.ID,
				Role:      invitation.Role,
				InvitedBy: invitation.InvitedBy,
				InvitedAt: invitation.CreatedAt,
				JoinedAt:  &now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Re-invited after removal or a role upgrade.
			if err := tx.Model(&member).Updates(map[string]interface{}{
				"role":      invitation.Role,
				"joined_at": now,
			}).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Update("accepted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationAccepted
		}

		result.ProjectID = invitation.ProjectID
		result.Role = invitation.Role
		return nil
	})
	if err != nil {
		return nil, err
	}

	SystemLogInfo("invitation", "accept",
		fmt.Sprintf("user %s joined project %d as %s", user.Username, result.ProjectID, result.Role),
		&userID)

	return result, nil
}

func (s *InvitationService) acceptURL(token string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s", s.baseURL, url.QueryEscape(token))
}

func hashInvitationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

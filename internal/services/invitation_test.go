package services

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/gorm"
)

// lastToken extracts the plaintext token from the most recent accept URL.
func lastToken(t *testing.T, q *recordingQueue) string {
	t.Helper()
	if len(q.tasks) == 0 {
		t.Fatal("no email task was enqueued")
	}
	u, err := url.Parse(q.tasks[len(q.tasks)-1].AcceptURL)
	if err != nil {
		t.Fatalf("invalid accept URL: %v", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatal("accept URL carries no token")
	}
	return token
}

func TestInvitationCreate(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	result, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "Invitee@Example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !result.EmailSent {
		t.Error("EmailSent should be true when delivery succeeds")
	}
	if result.Invitation.Email != "invitee@example.com" {
		t.Errorf("Email = %q, expected lower-cased %q", result.Invitation.Email, "invitee@example.com")
	}
	if result.Invitation.AcceptedAt != nil {
		t.Error("new invitation should not be accepted")
	}

	ttl := time.Until(result.Invitation.ExpiresAt)
	if ttl < InvitationTTL-time.Minute || ttl > InvitationTTL+time.Minute {
		t.Errorf("expiry is off: %v from now, expected about %v", ttl, InvitationTTL)
	}

	// Only the hash is stored, never the token itself.
	token := lastToken(t, queue)
	if result.Invitation.TokenHash == token {
		t.Error("token must not be stored in plaintext")
	}
	if len(result.Invitation.TokenHash) != 64 {
		t.Errorf("TokenHash length = %d, expected 64 hex chars", len(result.Invitation.TokenHash))
	}
}

func TestInvitationCreate_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	member := createTestUser(t, db, "member", "member@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	addTestMember(t, db, project.ID, member.ID, models.RoleContributor)
	svc := newTestInvitationService(db, &recordingQueue{})

	_, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "x@example.com",
		Role:  models.RoleContributor,
	}, member.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("contributor invite = %v, expected ErrNotFound", err)
	}
}

func TestInvitationCreate_SupersedesPending(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	first, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	firstToken := lastToken(t, queue)

	second, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleOwner,
	}, owner.ID)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	// Exactly one live invitation remains for the pair.
	var count int64
	db.Model(&models.Invitation{}).
		Where("project_id = ? AND email = ? AND accepted_at IS NULL", project.ID, "invitee@example.com").
		Count(&count)
	if count != 1 {
		t.Errorf("pending invitations = %d, expected 1", count)
	}
	if first.Invitation.ID == second.Invitation.ID {
		t.Error("superseding invitation should be a new row")
	}

	// The superseded token is dead.
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	if _, err := svc.Accept(firstToken, invitee.ID); !errors.Is(err, ErrInvitationInvalid) {
		t.Errorf("accept of superseded token = %v, expected ErrInvitationInvalid", err)
	}

	// The new token works and carries the new role.
	result, err := svc.Accept(lastToken(t, queue), invitee.ID)
	if err != nil {
		t.Fatalf("accept of new token error = %v", err)
	}
	if result.Role != models.RoleOwner {
		t.Errorf("accepted role = %q, expected %q", result.Role, models.RoleOwner)
	}
}

func TestInvitationCreate_EmailFailureIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{fail: errors.New("smtp unreachable")}
	svc := newTestInvitationService(db, queue)

	result, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v, delivery failure must not fail the call", err)
	}
	if result.EmailSent {
		t.Error("EmailSent should be false when delivery fails")
	}

	var count int64
	db.Model(&models.Invitation{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 1 {
		t.Errorf("invitations = %d, expected 1 despite delivery failure", count)
	}
}

func TestInvitationAccept(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	if _, err := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := svc.Accept(lastToken(t, queue), invitee.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if result.ProjectID != project.ID {
		t.Errorf("ProjectID = %d, expected %d", result.ProjectID, project.ID)
	}
	if result.Role != models.RoleContributor {
		t.Errorf("Role = %q, expected %q", result.Role, models.RoleContributor)
	}

	var member models.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", project.ID, invitee.ID).First(&member).Error; err != nil {
		t.Fatalf("membership row not created: %v", err)
	}
	if member.JoinedAt == nil {
		t.Error("accepted membership should have joined_at set")
	}

	// The invitee now has view access.
	if err := NewAccessService(db).RequireView(project.ID, invitee.ID); err != nil {
		t.Errorf("invitee should have view access after accepting, got %v", err)
	}
}

func TestInvitationAccept_SingleUse(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	token := lastToken(t, queue)

	if _, err := svc.Accept(token, invitee.ID); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	if _, err := svc.Accept(token, invitee.ID); !errors.Is(err, ErrInvitationAccepted) {
		t.Errorf("second Accept() = %v, expected ErrInvitationAccepted", err)
	}

	// Exactly one membership row regardless.
	var count int64
	db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, invitee.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("membership rows = %d, expected 1", count)
	}
}

func TestInvitationAccept_EmailMismatch(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	other := createTestUser(t, db, "other", "other@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	token := lastToken(t, queue)

	if _, err := svc.Accept(token, other.ID); !errors.Is(err, ErrEmailMismatch) {
		t.Errorf("Accept() with wrong email = %v, expected ErrEmailMismatch", err)
	}

	// The invitation stays pending so the right user can still accept.
	if _, err := svc.Accept(token, invitee.ID); err != nil {
		t.Errorf("correct user should still be able to accept, got %v", err)
	}
}

func TestInvitationAccept_Expired(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	result, _ := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	token := lastToken(t, queue)

	// Force the invitation past its deadline.
	db.Model(&models.Invitation{}).
		Where("id = ?", result.Invitation.ID).
		Update("expires_at", time.Now().Add(-time.Second))

	if _, err := svc.Accept(token, invitee.ID); !errors.Is(err, ErrInvitationInvalid) {
		t.Errorf("Accept() of expired invitation = %v, expected ErrInvitationInvalid", err)
	}

	var member models.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", project.ID, invitee.ID).First(&member).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("expired acceptance must not create a membership")
	}
}

func TestInvitationAccept_GarbageToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "user", "user@example.com")
	svc := newTestInvitationService(db, &recordingQueue{})

	for _, token := range []string{"", "   ", "not-a-token"} {
		if _, err := svc.Accept(token, user.ID); !errors.Is(err, ErrInvitationInvalid) {
			t.Errorf("Accept(%q) = %v, expected ErrInvitationInvalid", token, err)
		}
	}
}

func TestInvitationAccept_ReinviteAfterRemoval(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	svc.Accept(lastToken(t, queue), invitee.ID)

	// Remove and re-invite with a higher role.
	var member models.ProjectMember
	db.Where("project_id = ? AND user_id = ?", project.ID, invitee.ID).First(&member)
	if err := NewMemberService(db).Remove(project.ID, member.ID, owner.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleOwner,
	}, owner.ID)
	result, err := svc.Accept(lastToken(t, queue), invitee.ID)
	if err != nil {
		t.Fatalf("re-accept after removal error = %v", err)
	}
	if result.Role != models.RoleOwner {
		t.Errorf("Role after re-invite = %q, expected %q", result.Role, models.RoleOwner)
	}
}

func TestInvitationListPending_FiltersExpiredAndAccepted(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "a@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	// One accepted, one expired, one live.
	svc.Create(project.ID, &CreateInvitationRequest{Email: "a@example.com", Role: models.RoleContributor}, owner.ID)
	svc.Accept(lastToken(t, queue), invitee.ID)

	expired, _ := svc.Create(project.ID, &CreateInvitationRequest{Email: "b@example.com", Role: models.RoleContributor}, owner.ID)
	db.Model(&models.Invitation{}).
		Where("id = ?", expired.Invitation.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	svc.Create(project.ID, &CreateInvitationRequest{Email: "c@example.com", Role: models.RoleContributor}, owner.ID)

	pending, err := svc.ListPending(project.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, expected 1", len(pending))
	}
	if pending[0].Email != "c@example.com" {
		t.Errorf("pending email = %q, expected %q", pending[0].Email, "c@example.com")
	}
}

func TestInvitationRevoke(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	member := createTestUser(t, db, "member", "member@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	addTestMember(t, db, project.ID, member.ID, models.RoleContributor)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	result, _ := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	token := lastToken(t, queue)

	// Contributors cannot revoke.
	if err := svc.Revoke(result.Invitation.ID, member.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("contributor revoke = %v, expected ErrNotFound", err)
	}

	if err := svc.Revoke(result.Invitation.ID, owner.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	// Revoked token no longer accepts.
	if _, err := svc.Accept(token, invitee.ID); !errors.Is(err, ErrInvitationInvalid) {
		t.Errorf("accept of revoked token = %v, expected ErrInvitationInvalid", err)
	}
}

func TestInvitationRevoke_AcceptedConflicts(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	invitee := createTestUser(t, db, "invitee", "invitee@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	queue := &recordingQueue{}
	svc := newTestInvitationService(db, queue)

	result, _ := svc.Create(project.ID, &CreateInvitationRequest{
		Email: "invitee@example.com",
		Role:  models.RoleContributor,
	}, owner.ID)
	svc.Accept(lastToken(t, queue), invitee.ID)

	if err := svc.Revoke(result.Invitation.ID, owner.ID); !errors.Is(err, ErrInvitationAccepted) {
		t.Errorf("revoke of accepted invitation = %v, expected ErrInvitationAccepted", err)
	}
}

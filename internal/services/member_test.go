package services

import (
	"errors"
	"testing"

	"github.com/kanbanio/taskboard/internal/models"
)

func TestMemberList_OnlyAcceptedMembers(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	member := createTestUser(t, db, "member", "member@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	addTestMember(t, db, project.ID, member.ID, models.RoleContributor)

	members, err := NewMemberService(db).List(project.ID, member.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %d, expected 2 (owner and contributor)", len(members))
	}
}

func TestMemberChangeRole(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	member := createTestUser(t, db, "member", "member@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	row := addTestMember(t, db, project.ID, member.ID, models.RoleContributor)

	svc := NewMemberService(db)

	updated, err := svc.ChangeRole(project.ID, row.ID, models.RoleOwner, owner.ID)
	if err != nil {
		t.Fatalf("ChangeRole() error = %v", err)
	}
	if updated.Role != models.RoleOwner {
		t.Errorf("Role = %q, expected %q", updated.Role, models.RoleOwner)
	}

	if _, err := svc.ChangeRole(project.ID, row.ID, "superadmin", owner.ID); err == nil {
		t.Error("unknown role should be rejected")
	}
}

func TestMemberChangeRole_SelfTargetRefused(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	project := createTestProject(t, db, "Board", owner.ID)

	var ownRow models.ProjectMember
	db.Where("project_id = ? AND user_id = ?", project.ID, owner.ID).First(&ownRow)

	_, err := NewMemberService(db).ChangeRole(project.ID, ownRow.ID, models.RoleContributor, owner.ID)
	if !errors.Is(err, ErrSelfTarget) {
		t.Errorf("self demotion = %v, expected ErrSelfTarget", err)
	}
}

func TestMemberRemove(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	member := createTestUser(t, db, "member", "member@example.com")
	project := createTestProject(t, db, "Board", owner.ID)
	row := addTestMember(t, db, project.ID, member.ID, models.RoleContributor)

	svc := NewMemberService(db)

	// Contributors cannot remove anyone.
	if err := svc.Remove(project.ID, row.ID, member.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("contributor Remove = %v, expected ErrNotFound", err)
	}

	if err := svc.Remove(project.ID, row.ID, owner.ID); err != nil {
		t.Fatalf("owner Remove error = %v", err)
	}

	// Removed member loses access.
	if err := NewAccessService(db).RequireView(project.ID, member.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed member access = %v, expected ErrNotFound", err)
	}
}

func TestMemberRemove_SelfTargetRefused(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner", "owner@example.com")
	project := createTestProject(t, db, "Board", owner.ID)

	var ownRow models.ProjectMember
	db.Where("project_id = ? AND user_id = ?", project.ID, owner.ID).First(&ownRow)

	err := NewMemberService(db).Remove(project.ID, ownRow.ID, owner.ID)
	if !errors.Is(err, ErrSelfTarget) {
		t.Errorf("self removal = %v, expected ErrSelfTarget", err)
	}
}

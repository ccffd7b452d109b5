package services

import (
	"testing"
	"time"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Invitation{},
		&models.BoardColumn{},
		&models.Issue{},
		&models.SystemConfig{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    email,
		Nickname: username,
		Role:     models.RoleUser,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

// createTestProject creates a project through the service so the owner
// membership row and default columns are seeded.
func createTestProject(t *testing.T, db *gorm.DB, name string, ownerID uint) *models.Project {
	t.Helper()

	project, err := NewProjectService(db).Create(&CreateProjectRequest{Name: name}, ownerID)
	if err != nil {
		t.Fatalf("failed to create test project %q: %v", name, err)
	}
	return project
}

// addTestMember inserts an accepted contributor membership directly.
func addTestMember(t *testing.T, db *gorm.DB, projectID, userID uint, role string) *models.ProjectMember {
	t.Helper()

	now := time.Now()
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		InvitedBy: userID,
		InvitedAt: now,
		JoinedAt:  &now,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return member
}

// recordingQueue captures enqueued email tasks for assertions.
type recordingQueue struct {
	tasks []*InvitationEmailTask
	fail  error
}

func (q *recordingQueue) Enqueue(task *InvitationEmailTask) error {
	if q.fail != nil {
		return q.fail
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func newTestInvitationService(db *gorm.DB, queue TaskQueue) *InvitationService {
	return NewInvitationService(db, queue, "http://localhost:8080")
}

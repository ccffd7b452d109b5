package models

import "time"

// Membership roles within a project.
const (
	RoleOwner       = "owner"
	RoleContributor = "contributor"
)

// ProjectMember records that a user belongs to a project with a role.
// A nil JoinedAt marks an invited-but-not-yet-active relationship; an
// accepted member always has JoinedAt set. Removal deletes the row outright
// so the unique (project, user) index never blocks a re-invite.
type ProjectMember struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ProjectID uint       `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint       `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string     `gorm:"size:50;default:contributor" json:"role"` // owner, contributor
	InvitedBy uint       `json:"invited_by"`
	InvitedAt time.Time  `json:"invited_at"`
	JoinedAt  *time.Time `json:"joined_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

// IsActive reports whether the membership has been accepted.
func (m *ProjectMember) IsActive() bool {
	return m.JoinedAt != nil
}

// ValidRole reports whether role is one of the membership roles.
func ValidRole(role string) bool {
	return role == RoleOwner || role == RoleContributor
}

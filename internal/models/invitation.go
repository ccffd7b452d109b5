package models

import "time"

// Invitation is a single-use, time-limited offer of membership addressed to
// an email, not a user account. Only the SHA-256 hash of the token is stored;
// the plaintext token exists only in the acceptance link.
type Invitation struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"index:idx_invitation_project_email;not null" json:"project_id"`
	Project    *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Email      string     `gorm:"index:idx_invitation_project_email;size:255;not null" json:"email"` // stored lower-cased
	Role       string     `gorm:"size:50;not null" json:"role"`
	InvitedBy  uint       `gorm:"not null" json:"invited_by"`
	Inviter    *User      `gorm:"foreignKey:InvitedBy" json:"inviter,omitempty"`
	TokenHash  string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }

// IsExpired reports whether the invitation can no longer be accepted at now.
// The boundary instant counts as expired.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsPending reports whether the invitation is still open: not accepted and
// not expired.
func (i *Invitation) IsPending(now time.Time) bool {
	return i.AcceptedAt == nil && !i.IsExpired(now)
}

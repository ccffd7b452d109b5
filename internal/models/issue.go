package models

import "time"

// Issue is a work item within a column. ProjectID is denormalized from the
// column so project-wide queries and access checks need no join. Positions
// are dense and 1-based within a column.
type Issue struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ProjectID   uint         `gorm:"index;not null" json:"project_id"`
	ColumnID    uint         `gorm:"index;not null" json:"column_id"`
	Column      *BoardColumn `gorm:"foreignKey:ColumnID" json:"column,omitempty"`
	Title       string       `gorm:"size:500;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Position    int          `gorm:"not null" json:"position"`
	AssigneeID  *uint        `gorm:"index" json:"assignee_id"`
	Assignee    *User        `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatedBy   uint         `gorm:"not null" json:"created_by"`
	Creator     *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Issue) TableName() string { return "issues" }

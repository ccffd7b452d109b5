package models

import "time"

// BoardColumn is a workflow stage on a project's board. Positions are dense
// and 1-based within a project.
type BoardColumn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"project_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BoardColumn) TableName() string { return "board_columns" }

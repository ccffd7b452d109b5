package services

import (
	"errors"
	"strings"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/gorm"
)

type ColumnService struct {
	db     *gorm.DB
	access *AccessService
}

func NewColumnService(db *gorm.DB) *ColumnService {
	return &ColumnService{db: db, access: NewAccessService(db)}
}

type CreateColumnRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateColumnRequest struct {
	Name string `json:"name" binding:"required"`
}

// List returns the project's columns in board order.
func (s *ColumnService) List(projectID, userID uint) ([]models.BoardColumn, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	var columns []models.BoardColumn
	if err := s.db.Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// Create appends a new column at the end of the board.
func (s *ColumnService) Create(projectID uint, req *CreateColumnRequest, userID uint) (*models.BoardColumn, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	column := models.BoardColumn{
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
	}
	if column.Name == "" {
		return nil, errors.New("column name is required")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		tx.Model(&models.BoardColumn{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos)
		column.Position = maxPos + 1
		return tx.Create(&column).Error
	})
	if err != nil {
		return nil, err
	}
	return &column, nil
}

// Update renames a column.
func (s *ColumnService) Update(projectID, columnID uint, req *UpdateColumnRequest, userID uint) (*models.BoardColumn, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	column, err := s.find(projectID, columnID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("column name is required")
	}

	if err := s.db.Model(column).Update("name", name).Error; err != nil {
		return nil, err
	}
	return column, nil
}

// Delete removes an empty column and closes the position gap. Owner only.
// Columns still holding issues are refused so no issue is ever orphaned.
func (s *ColumnService) Delete(projectID, columnID, userID uint) error {
	if err := s.access.RequireManage(projectID, userID); err != nil {
		return err
	}

	column, err := s.find(projectID, columnID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var issueCount int64
		if err := tx.Model(&models.Issue{}).
			Where("column_id = ?", column.ID).
			Count(&issueCount).Error; err != nil {
			return err
		}
		if issueCount > 0 {
			return errors.New("column still contains issues, move them first")
		}

		if err := tx.Delete(column).Error; err != nil {
			return err
		}

		return tx.Model(&models.BoardColumn{}).
			Where("project_id = ? AND position > ?", projectID, column.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

// Reorder moves a column to a new 1-based position, shifting the columns in
// between so positions stay dense.
func (s *ColumnService) Reorder(projectID, columnID uint, position int, userID uint) error {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return err
	}

	column, err := s.find(projectID, columnID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.BoardColumn{}).
			Where("project_id = ?", projectID).
			Count(&count).Error; err != nil {
			return err
		}

		target := clampPosition(position, int(count))
		if target == column.Position {
			return nil
		}

		if target < column.Position {
			if err := tx.Model(&models.BoardColumn{}).
				Where("project_id = ? AND position >= ? AND position < ?", projectID, target, column.Position).
				Update("position", gorm.Expr("position + 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&models.BoardColumn{}).
				Where("project_id = ? AND position > ? AND position <= ?", projectID, column.Position, target).
				Update("position", gorm.Expr("position - 1")).Error; err != nil {
				return err
			}
		}

		return tx.Model(column).Update("position", target).Error
	})
}

func (s *ColumnService) find(projectID, columnID uint) (*models.BoardColumn, error) {
	var column models.BoardColumn
	err := s.db.Where("project_id = ?", projectID).First(&column, columnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &column, nil
}

// clampPosition bounds a requested position to [1, count].
func clampPosition(position, count int) int {
	if position < 1 {
		return 1
	}
	if position > count {
		return count
	}
	return position
}

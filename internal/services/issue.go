package services

import (
	"errors"
	"strings"

	"github.com/kanbanio/taskboard/internal/models"
	"gorm.io/gorm"
)

type IssueService struct {
	db     *gorm.DB
	access *AccessService
}

func NewIssueService(db *gorm.DB) *IssueService {
	return &IssueService{db: db, access: NewAccessService(db)}
}

type CreateIssueRequest struct {
	ColumnID    uint   `json:"column_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssigneeID  *uint  `json:"assignee_id"`
}

type UpdateIssueRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	AssigneeID  *uint   `json:"assignee_id"`
}

type MoveIssueRequest struct {
	ColumnID uint `json:"column_id" binding:"required"`
	Position int  `json:"position" binding:"required,min=1"`
}

// List returns all issues of a project in board order.
func (s *IssueService) List(projectID, userID uint) ([]models.Issue, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	var issues []models.Issue
	if err := s.db.Where("project_id = ?", projectID).
		Preload("Assignee").
		Order("column_id ASC, position ASC").
		Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *IssueService) GetByID(projectID, issueID, userID uint) (*models.Issue, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	var issue models.Issue
	err := s.db.Where("project_id = ?", projectID).
		Preload("Assignee").
		Preload("Creator").
		First(&issue, issueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Create appends a new issue at the bottom of the target column. Any accepted
// member may create issues. An assignee must be the owner or an accepted
// member of the project.
func (s *IssueService) Create(projectID uint, req *CreateIssueRequest, userID uint) (*models.Issue, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.New("issue title is required")
	}

	var column models.BoardColumn
	err := s.db.Where("project_id = ?", projectID).First(&column, req.ColumnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if req.AssigneeID != nil {
		if err := s.access.RequireView(projectID, *req.AssigneeID); err != nil {
			return nil, errors.New("assignee is not a member of this project")
		}
	}

	issue := models.Issue{
		ProjectID:   projectID,
		ColumnID:    column.ID,
		Title:       title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   userID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		tx.Model(&models.Issue{}).
			Where("column_id = ?", column.ID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos)
		issue.Position = maxPos + 1
		return tx.Create(&issue).Error
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *IssueService) Update(projectID, issueID uint, req *UpdateIssueRequest, userID uint) (*models.Issue, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	issue, err := s.find(projectID, issueID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = strings.TrimSpace(req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == 0 {
			updates["assignee_id"] = nil
		} else {
			if err := s.access.RequireView(projectID, *req.AssigneeID); err != nil {
				return nil, errors.New("assignee is not a member of this project")
			}
			updates["assignee_id"] = *req.AssigneeID
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(issue).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return issue, nil
}

// Delete removes an issue and closes the position gap in its column.
func (s *IssueService) Delete(projectID, issueID, userID uint) error {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return err
	}

	issue, err := s.find(projectID, issueID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(issue).Error; err != nil {
			return err
		}
		return tx.Model(&models.Issue{}).
			Where("column_id = ? AND position > ?", issue.ColumnID, issue.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

// Move places an issue at a 1-based position in a target column, which may be
// its current column. The source gap is closed and the target run is shifted
// in the same transaction so both columns stay dense.
func (s *IssueService) Move(projectID, issueID uint, req *MoveIssueRequest, userID uint) (*models.Issue, error) {
	if err := s.access.RequireView(projectID, userID); err != nil {
		return nil, err
	}

	issue, err := s.find(projectID, issueID)
	if err != nil {
		return nil, err
	}

	var target models.BoardColumn
	err = s.db.Where("project_id = ?", projectID).First(&target, req.ColumnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if target.ID == issue.ColumnID {
			return s.moveWithinColumn(tx, issue, req.Position)
		}
		return s.moveAcrossColumns(tx, issue, target.ID, req.Position)
	})
	if err != nil {
		return nil, err
	}

	s.db.First(issue, issue.ID)
	return issue, nil
}

func (s *IssueService) moveWithinColumn(tx *gorm.DB, issue *models.Issue, position int) error {
	var count int64
	if err := tx.Model(&models.Issue{}).
		Where("column_id = ?", issue.ColumnID).
		Count(&count).Error; err != nil {
		return err
	}

	target := clampPosition(position, int(count))
	if target == issue.Position {
		return nil
	}

	if target < issue.Position {
		if err := tx.Model(&models.Issue{}).
			Where("column_id = ? AND position >= ? AND position < ?", issue.ColumnID, target, issue.Position).
			Update("position", gorm.Expr("position + 1")).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Model(&models.Issue{}).
			Where("column_id = ? AND position > ? AND position <= ?", issue.ColumnID, issue.Position, target).
			Update("position", gorm.Expr("position - 1")).Error; err != nil {
			return err
		}
	}

	return tx.Model(issue).Update("position", target).Error
}

func (s *IssueService) moveAcrossColumns(tx *gorm.DB, issue *models.Issue, targetColumnID uint, position int) error {
	var count int64
	if err := tx.Model(&models.Issue{}).
		Where("column_id = ?", targetColumnID).
		Count(&count).Error; err != nil {
		return err
	}

	// The issue is being added, so one past the end is valid.
	target := clampPosition(position, int(count)+1)

	// Close the gap in the source column.
	if err := tx.Model(&models.Issue{}).
		Where("column_id = ? AND position > ?", issue.ColumnID, issue.Position).
		Update("position", gorm.Expr("position - 1")).Error; err != nil {
		return err
	}

	// Open a slot in the target column.
	if err := tx.Model(&models.Issue{}).
		Where("column_id = ? AND position >= ?", targetColumnID, target).
		Update("position", gorm.Expr("position + 1")).Error; err != nil {
		return err
	}

	return tx.Model(issue).Updates(map[string]interface{}{
		"column_id": targetColumnID,
		"position":  target,
	}).Error
}

func (s *IssueService) find(projectID, issueID uint) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.Where("project_id = ?", projectID).First(&issue, issueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

package repository

import (
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create creates a new comment
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// FindByID finds a comment by ID
func (r *GormCommentRepository) FindByID(id uint64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTask lists a task's comments in creation order
func (r *GormCommentRepository) ListByTask(taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete deletes a comment
func (r *GormCommentRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Comment{}, id).Error
}

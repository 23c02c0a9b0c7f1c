package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrCommentBodyEmpty = errors.New("comment body cannot be empty")
	ErrNotCommentAuthor = errors.New("only the comment author can delete it")
)

// CommentService handles comment business logic.
type CommentService struct {
	commentRepo repository.CommentRepository
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// AddComment appends a comment to a task.
func (s *CommentService) AddComment(taskID, authorID uint64, body string) (*models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrCommentBodyEmpty
	}

	comment := &models.Comment{
		TaskID:   taskID,
		AuthorID: authorID,
		Body:     body,
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a task's comments in creation order.
func (s *CommentService) ListComments(taskID uint64) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// GetComment returns a comment by ID.
func (s *CommentService) GetComment(commentID uint64) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment when the actor wrote it.
func (s *CommentService) DeleteComment(commentID, actorID uint64) error {
	comment, err := s.GetComment(commentID)
	if err != nil {
		return err
	}

	if comment.AuthorID != actorID {
		return ErrNotCommentAuthor
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

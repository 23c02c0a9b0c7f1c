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
	ErrLabelNotFound     = errors.New("label not found in this project")
	ErrLabelNameRequired = errors.New("label name cannot be empty")
	ErrLabelNameTaken    = errors.New("a label with this name already exists in the project")
)

// LabelService provides business logic for project labels. Label names are
// unique within a project; a label only ever attaches to tasks of its own
// project.
type LabelService struct {
	labelRepo repository.LabelRepository
	activity  *ActivityService
}

// NewLabelService creates a new LabelService.
func NewLabelService(labelRepo repository.LabelRepository, activity *ActivityService) *LabelService {
	return &LabelService{
		labelRepo: labelRepo,
		activity:  activity,
	}
}

// CreateLabelInput represents parameters to create a label.
type CreateLabelInput struct {
	ProjectID uint64
	ActorID   uint64
	Name      string
	Color     string
}

// CreateLabel creates a label in the project.
func (s *LabelService) CreateLabel(input CreateLabelInput) (*models.Label, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrLabelNameRequired
	}

	label := &models.Label{
		ProjectID: input.ProjectID,
		Name:      input.Name,
	}
	if input.Color != "" {
		label.Color = input.Color
	}

	if err := s.labelRepo.Create(label); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLabelNameTaken
		}
		return nil, fmt.Errorf("failed to create label: %w", err)
	}

	s.activity.LabelCreated(input.ActorID, label)

	return label, nil
}

// ListLabels returns the project's labels ordered by name.
func (s *LabelService) ListLabels(projectID uint64) ([]models.Label, error) {
	labels, err := s.labelRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// UpdateLabelInput represents a partial label update.
type UpdateLabelInput struct {
	Name  *string
	Color *string
}

// UpdateLabel applies a partial update to a label in the project.
func (s *LabelService) UpdateLabel(projectID, labelID uint64, input UpdateLabelInput) (*models.Label, error) {
	label, err := s.findInProject(projectID, labelID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrLabelNameRequired
		}
		label.Name = *input.Name
	}
	if input.Color != nil {
		label.Color = *input.Color
	}

	if err := s.labelRepo.Update(label); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLabelNameTaken
		}
		return nil, fmt.Errorf("failed to update label: %w", err)
	}

	return label, nil
}

// DeleteLabel removes a label from the project, detaching it everywhere.
func (s *LabelService) DeleteLabel(projectID, labelID, actorID uint64) error {
	label, err := s.findInProject(projectID, labelID)
	if err != nil {
		return err
	}

	if err := s.labelRepo.Delete(label.ID); err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}

	s.activity.LabelRemoved(actorID, projectID, label.Name)

	return nil
}

// AttachLabel attaches a label of the task's project to the task.
func (s *LabelService) AttachLabel(task *models.Task, labelID, actorID uint64) (*models.Label, error) {
	label, err := s.findInProject(task.ProjectID, labelID)
	if err != nil {
		return nil, err
	}

	if err := s.labelRepo.Attach(label, task); err != nil {
		return nil, fmt.Errorf("failed to attach label: %w", err)
	}

	s.activity.LabelAttached(actorID, task, label)

	return label, nil
}

// DetachLabel removes a label from the task.
func (s *LabelService) DetachLabel(task *models.Task, labelID, actorID uint64) error {
	label, err := s.findInProject(task.ProjectID, labelID)
	if err != nil {
		return err
	}

	if err := s.labelRepo.Detach(label, task); err != nil {
		return fmt.Errorf("failed to detach label: %w", err)
	}

	s.activity.LabelDetached(actorID, task, label)

	return nil
}

// findInProject loads a label and verifies it belongs to the project. A
// label from another project reads as not found, the same as a missing one.
func (s *LabelService) findInProject(projectID, labelID uint64) (*models.Label, error) {
	label, err := s.labelRepo.FindByID(labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLabelNotFound
		}
		return nil, fmt.Errorf("failed to find label: %w", err)
	}
	if label.ProjectID != projectID {
		return nil, ErrLabelNotFound
	}
	return label, nil
}

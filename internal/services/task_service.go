package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/rank"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleEmpty        = errors.New("title cannot be empty")
	ErrInvalidStatus     = errors.New("status must be one of todo, in_progress, done")
	ErrInvalidPriority   = errors.New("priority must be one of low, medium, high, urgent")
	ErrInvalidAssignee   = errors.New("assignee must be a member of the task's project")
	ErrImmutableField    = errors.New("a task cannot move to another project")
	ErrCrossProjectMove  = errors.New("reorder neighbors must belong to the task's project")
	ErrNeighborsInverted = errors.New("before_id must come before after_id in the project's order")
	ErrReorderConflict   = errors.New("concurrent reorder conflict, please retry")
)

// TaskService handles task business logic. Authorization happens before the
// service is reached: the gate resolves the actor's membership once per
// request, so nothing here re-queries the actor's role. Membership lookups
// below are about assignees, which is a data invariant, not access control.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	activity    *ActivityService
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, activity *ActivityService) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		activity:    activity,
	}
}

// ListTasksInput represents filters for listing a project's tasks.
type ListTasksInput struct {
	ProjectID  uint64
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssigneeID *uint64
	Unassigned bool
	DueBefore  *time.Time
	DueAfter   *time.Time
	Search     string
	Page       int
	PageSize   int
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	ProjectID   uint64
	CreatorID   uint64
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	AssigneeID  *uint64
	DueDate     *time.Time
	BeforeID    *uint64
	AfterID     *uint64
}

// UpdateTaskInput represents a partial task update. ProjectID is accepted
// only so reassignment attempts can be rejected explicitly.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uint64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	ProjectID     *uint64
}

// ReorderTaskInput represents a move within the project's order.
type ReorderTaskInput struct {
	TaskID   uint64
	ActorID  uint64
	BeforeID *uint64
	AfterID  *uint64
	Touch    bool
}

// ListTasks returns the project's tasks ascending by position.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		ProjectID:  input.ProjectID,
		Status:     input.Status,
		Priority:   input.Priority,
		AssigneeID: input.AssigneeID,
		Unassigned: input.Unassigned,
		DueBefore:  input.DueBefore,
		DueAfter:   input.DueAfter,
		Search:     input.Search,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignee", "Labels", "Comments", "Comments.Author")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a task. The default insertion point is the tail of the
// project's order.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	} else if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	} else if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if input.AssigneeID != nil {
		if err := s.ensureProjectMember(input.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		CreatorID:   input.CreatorID,
	}

	if err := s.taskRepo.Create(task, input.BeforeID, input.AfterID); err != nil {
		return nil, s.mapOrderingError(err, "failed to create task")
	}

	s.activity.TaskCreated(input.CreatorID, task)

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// UpdateTask applies a partial update. The project reference is immutable;
// the assignee invariant is enforced on every write, not just creation.
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.ProjectID != nil && *input.ProjectID != task.ProjectID {
		return nil, ErrImmutableField
	}

	changes := map[string]any{}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		changes["title"] = map[string]any{"from": task.Title, "to": *input.Title}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		changes["status"] = map[string]any{"from": task.Status, "to": *input.Status}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.ensureProjectMember(task.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.activity.TaskUpdated(actorID, task, changes)

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// DeleteTask hard deletes a task. Sibling positions are untouched.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.activity.TaskDeleted(actorID, task.ProjectID, task.Title)

	return nil
}

// ReorderTask moves a task between the named neighbors.
func (s *TaskService) ReorderTask(input ReorderTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.Reorder(input.TaskID, input.BeforeID, input.AfterID, input.Touch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, s.mapOrderingError(err, "failed to reorder task")
	}

	s.activity.TaskReordered(input.ActorID, task)

	return task, nil
}

// ProjectSummary aggregates the project's task counts. Every priority and
// status bucket is present in the result, zero or not.
func (s *TaskService) ProjectSummary(projectID uint64) (*repository.TaskSummary, error) {
	summary, err := s.taskRepo.Summary(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize tasks: %w", err)
	}

	for _, p := range []models.TaskPriority{
		models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent,
	} {
		if _, ok := summary.ByPriority[p]; !ok {
			summary.ByPriority[p] = 0
		}
	}
	for _, st := range []models.TaskStatus{
		models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone,
	} {
		if _, ok := summary.ByStatus[st]; !ok {
			summary.ByStatus[st] = 0
		}
	}

	return summary, nil
}

// ensureProjectMember verifies the assignee invariant.
func (s *TaskService) ensureProjectMember(projectID, userID uint64) error {
	_, ok, err := s.projectRepo.ResolveMember(projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	if !ok {
		return ErrInvalidAssignee
	}
	return nil
}

// mapOrderingError converts repository ordering failures into service
// errors callers can match on.
func (s *TaskService) mapOrderingError(err error, context string) error {
	switch {
	case errors.Is(err, repository.ErrNeighborNotFound):
		return ErrTaskNotFound
	case errors.Is(err, repository.ErrCrossProjectMove):
		return ErrCrossProjectMove
	case errors.Is(err, rank.ErrInvalidRange):
		return ErrNeighborsInverted
	case errors.Is(err, repository.ErrConflict):
		return ErrReorderConflict
	default:
		return fmt.Errorf("%s: %w", context, err)
	}
}

package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// TaskDTO represents a task in API responses. Position is an opaque
// ordering token; clients compare it lexicographically and never parse it.
type TaskDTO struct {
	ID          uint64              `json:"id"`
	ProjectID   uint64              `json:"project_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Position    string              `json:"position"`
	AssigneeID  *uint64             `json:"assignee_id"`
	DueDate     *time.Time          `json:"due_date"`
	CreatorID   uint64              `json:"creator_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Creator     *UserDTO            `json:"creator,omitempty"`
	Assignee    *UserDTO            `json:"assignee,omitempty"`
	Labels      []LabelDTO          `json:"labels,omitempty"`
}

// LabelDTO represents a project label in API responses
type LabelDTO struct {
	ID        uint64 `json:"id"`
	ProjectID uint64 `json:"project_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
}

// ToLabelDTO converts a Label model to LabelDTO
func ToLabelDTO(label models.Label) LabelDTO {
	return LabelDTO{
		ID:        label.ID,
		ProjectID: label.ProjectID,
		Name:      label.Name,
		Color:     label.Color,
	}
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	AuthorID  uint64    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Author    *UserDTO  `json:"author,omitempty"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Position:    task.Position,
		AssigneeID:  task.AssigneeID,
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}

	for _, label := range task.Labels {
		dto.Labels = append(dto.Labels, ToLabelDTO(label))
	}

	return dto
}

// ToTaskDTOs converts a slice of Task models
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}

	if comment.Author.ID != 0 {
		author := ToUserDTO(comment.Author)
		dto.Author = &author
	}

	return dto
}

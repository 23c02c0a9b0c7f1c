package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is ordered within its project by Position, an opaque lexicographic
// rank key. (project_id, position) is unique; clients must treat the token
// as sortable but not dense or numeric.
type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	ProjectID   uint64       `gorm:"not null;uniqueIndex:uniq_tasks_project_position,priority:1" json:"project_id"`
	Title       string       `gorm:"type:varchar(300);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	AssigneeID  *uint64      `json:"assignee_id"`
	DueDate     *time.Time   `json:"due_date"`
	Position    string       `gorm:"type:varchar(128);not null;uniqueIndex:uniq_tasks_project_position,priority:2" json:"position"`
	CreatorID   uint64       `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Project  Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Creator  User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee *User     `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Comments []Comment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Labels   []Label   `gorm:"many2many:task_labels" json:"labels,omitempty"`
}

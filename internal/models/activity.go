package models

import "time"

type ActivityAction string

const (
	ActivityTaskCreated   ActivityAction = "task_created"
	ActivityTaskUpdated   ActivityAction = "task_updated"
	ActivityTaskDeleted   ActivityAction = "task_deleted"
	ActivityTaskReordered ActivityAction = "task_reordered"
	ActivityMemberGranted ActivityAction = "member_granted"
	ActivityMemberRevoked ActivityAction = "member_revoked"
	ActivityLabelCreated  ActivityAction = "label_created"
	ActivityLabelRemoved  ActivityAction = "label_removed"
	ActivityLabelAttached ActivityAction = "label_attached"
	ActivityLabelDetached ActivityAction = "label_detached"
)

// Activity is a project-scoped audit row. Details holds a small JSON blob
// describing the change (old/new values and the like).
type Activity struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	ProjectID   uint64         `gorm:"not null;index" json:"project_id"`
	ActorID     uint64         `gorm:"not null" json:"actor_id"`
	Action      ActivityAction `gorm:"type:varchar(50);not null" json:"action"`
	TaskID      *uint64        `json:"task_id"`
	Description string         `gorm:"type:varchar(500);not null" json:"description"`
	Details     string         `gorm:"type:text" json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	// Relations
	Actor User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

package models

import "time"

// Label is a project-scoped tag. Tasks and labels are many-to-many; attaching
// a label from another project is rejected at the service layer.
type Label struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	ProjectID uint64    `gorm:"not null;uniqueIndex:uniq_labels_project_name,priority:1" json:"project_id"`
	Name      string    `gorm:"type:varchar(50);not null;uniqueIndex:uniq_labels_project_name,priority:2" json:"name"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#6366f1'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Tasks   []Task  `gorm:"many2many:task_labels" json:"tasks,omitempty"`
}

package models

import (
	"time"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusCompleted:
		return true
	}
	return false
}

type Project struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	Name        string        `gorm:"type:varchar(200);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Color       string        `gorm:"type:varchar(7);default:'#6366f1'" json:"color"`
	OwnerID     uint64        `gorm:"not null" json:"owner_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Owner   User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

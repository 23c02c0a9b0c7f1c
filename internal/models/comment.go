package models

import "time"

type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null" json:"task_id"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Task   Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

package models

import "time"

type ProjectRole string

const (
	RoleViewer ProjectRole = "viewer"
	RoleMember ProjectRole = "member"
	RoleOwner  ProjectRole = "owner"
)

// roleLevels defines the partial order viewer < member < owner.
var roleLevels = map[ProjectRole]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleOwner:  3,
}

// Valid reports whether the role is one of the known enum values.
func (r ProjectRole) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast compares two roles numerically.
func (r ProjectRole) AtLeast(min ProjectRole) bool {
	return roleLevels[r] >= roleLevels[min]
}

type ProjectMember struct {
	ProjectID uint64      `gorm:"primarykey" json:"project_id"`
	UserID    uint64      `gorm:"primarykey" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

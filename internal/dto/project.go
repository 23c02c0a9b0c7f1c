package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	Color       string               `json:"color"`
	OwnerID     uint64               `json:"owner_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// MemberDTO represents a project membership in API responses
type MemberDTO struct {
	ProjectID uint64             `json:"project_id"`
	UserID    uint64             `json:"user_id"`
	Role      models.ProjectRole `json:"role"`
	JoinedAt  time.Time          `json:"joined_at"`
	User      *UserDTO           `json:"user,omitempty"`
}

// ProjectMembershipDTO pairs a project with the caller's role in it,
// used when listing the caller's projects.
type ProjectMembershipDTO struct {
	Project ProjectDTO         `json:"project"`
	Role    models.ProjectRole `json:"role"`
}

// ActivityDTO represents an audit entry in API responses
type ActivityDTO struct {
	ID          uint64                `json:"id"`
	ProjectID   uint64                `json:"project_id"`
	ActorID     uint64                `json:"actor_id"`
	Action      models.ActivityAction `json:"action"`
	TaskID      *uint64               `json:"task_id,omitempty"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
	Actor       *UserDTO              `json:"actor,omitempty"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
	}
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		Color:       project.Color,
		OwnerID:     project.OwnerID,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToMemberDTO converts a ProjectMember model to MemberDTO
func ToMemberDTO(member models.ProjectMember) MemberDTO {
	dto := MemberDTO{
		ProjectID: member.ProjectID,
		UserID:    member.UserID,
		Role:      member.Role,
		JoinedAt:  member.JoinedAt,
	}

	if member.User.ID != 0 {
		user := ToUserDTO(member.User)
		dto.User = &user
	}

	return dto
}

// ToActivityDTO converts an Activity model to ActivityDTO
func ToActivityDTO(activity models.Activity) ActivityDTO {
	dto := ActivityDTO{
		ID:          activity.ID,
		ProjectID:   activity.ProjectID,
		ActorID:     activity.ActorID,
		Action:      activity.Action,
		TaskID:      activity.TaskID,
		Description: activity.Description,
		CreatedAt:   activity.CreatedAt,
	}

	if activity.Actor.ID != 0 {
		actor := ToUserDTO(activity.Actor)
		dto.Actor = &actor
	}

	return dto
}

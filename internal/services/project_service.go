package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvalidProjectName = errors.New("project name cannot be empty")
	ErrInvalidRole        = errors.New("role must be one of viewer, member, owner")
	ErrOwnerRequired      = errors.New("a project must retain at least one owner")
	ErrMemberNotFound     = errors.New("user is not a member of this project")
)

// ProjectService provides business logic for projects and memberships.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	activity    *ActivityService
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, activity *ActivityService) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		activity:    activity,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	Color       string
	OwnerID     uint64
}

// CreateProject creates a project; the creator becomes owner and member in
// the same transaction.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidProjectName
	}

	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		Status:      models.ProjectStatusActive,
		OwnerID:     input.OwnerID,
	}
	if input.Color != "" {
		project.Color = input.Color
	}

	owner := &models.ProjectMember{
		UserID:   input.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.Create(project, owner); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProject returns a project by ID.
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// ListProjectsForUser returns the memberships (with projects) a user holds.
func (s *ProjectService) ListProjectsForUser(userID uint64) ([]models.ProjectMember, error) {
	memberships, err := s.projectRepo.ListMembershipsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return memberships, nil
}

// UpdateProjectInput represents a partial project update.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	Color       *string
}

// UpdateProject applies a partial update to a project.
func (s *ProjectService) UpdateProject(projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.Color != nil {
		project.Color = *input.Color
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// DeleteProject removes a project and everything under it.
func (s *ProjectService) DeleteProject(projectID uint64) error {
	if _, err := s.GetProject(projectID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// ListMembers returns all members of a project.
func (s *ProjectService) ListMembers(projectID uint64) ([]models.ProjectMember, error) {
	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

// ResolveMember reports a user's role on a project; absence is data.
func (s *ProjectService) ResolveMember(projectID, userID uint64) (models.ProjectRole, bool, error) {
	return s.projectRepo.ResolveMember(projectID, userID)
}

// GrantMemberInput represents a membership grant or role change.
type GrantMemberInput struct {
	ProjectID uint64
	ActorID   uint64
	UserID    uint64
	Role      models.ProjectRole
}

// GrantMember upserts a membership. Granting an already-present member
// updates the role; demoting the last owner fails with ErrOwnerRequired.
func (s *ProjectService) GrantMember(input GrantMemberInput) (*models.ProjectMember, error) {
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.projectRepo.FindByID(input.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
		Role:      input.Role,
		JoinedAt:  time.Now(),
	}

	if err := s.projectRepo.GrantMember(member); err != nil {
		if errors.Is(err, repository.ErrOwnerRequired) {
			return nil, ErrOwnerRequired
		}
		return nil, fmt.Errorf("failed to grant membership: %w", err)
	}

	s.activity.MemberGranted(input.ActorID, input.ProjectID, input.UserID, input.Role)

	return member, nil
}

// RevokeMember removes a membership; idempotent for absent members. Revoking
// the sole owner fails with ErrOwnerRequired and the membership set is
// unchanged.
func (s *ProjectService) RevokeMember(projectID, actorID, userID uint64) error {
	if err := s.projectRepo.RevokeMember(projectID, userID); err != nil {
		if errors.Is(err, repository.ErrOwnerRequired) {
			return ErrOwnerRequired
		}
		return fmt.Errorf("failed to revoke membership: %w", err)
	}

	s.activity.MemberRevoked(actorID, projectID, userID)

	return nil
}

package repository

import (
	"errors"

	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOwnerRequired is returned when a grant or revoke would leave a project
// without any owner.
var ErrOwnerRequired = errors.New("project repository: a project must retain at least one owner")

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a project and its owner membership atomically
func (r *GormProjectRepository) Create(project *models.Project, owner *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		owner.ProjectID = project.ID
		owner.Role = models.RoleOwner

		return tx.Create(owner).Error
	})
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete deletes a project and all dependent rows in a transaction. This is
// the only cascading delete in the system.
func (r *GormProjectRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", id)

		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			"DELETE FROM task_labels WHERE label_id IN (SELECT id FROM labels WHERE project_id = ?)",
			id).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Label{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, id).Error
	})
}

// ResolveMember resolves a user's role on a project. A missing membership
// row is reported as ok=false, never as an error.
func (r *GormProjectRepository) ResolveMember(projectID, userID uint64) (models.ProjectRole, bool, error) {
	var member models.ProjectMember
	err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return member.Role, true, nil
}

// GrantMember upserts a membership. The owner-count invariant is checked in
// the same transaction as the write so it is never observable as violated.
func (r *GormProjectRepository) GrantMember(member *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if member.Role != models.RoleOwner {
			demotingLastOwner, err := isLastOwner(tx, member.ProjectID, member.UserID)
			if err != nil {
				return err
			}
			if demotingLastOwner {
				return ErrOwnerRequired
			}
		}

		return tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role"}),
			}).
			Create(member).Error
	})
}

// RevokeMember removes a membership. Idempotent: revoking an absent member
// is a no-op. Removing the last owner fails with ErrOwnerRequired and leaves
// the membership set unchanged.
func (r *GormProjectRepository) RevokeMember(projectID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		removingLastOwner, err := isLastOwner(tx, projectID, userID)
		if err != nil {
			return err
		}
		if removingLastOwner {
			return ErrOwnerRequired
		}

		return tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMember{}).Error
	})
}

// isLastOwner reports whether userID is currently an owner of the project
// and no other owner exists.
func isLastOwner(tx *gorm.DB, projectID, userID uint64) (bool, error) {
	var target models.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if target.Role != models.RoleOwner {
		return false, nil
	}

	var otherOwners int64
	err = tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ? AND user_id <> ?", projectID, models.RoleOwner, userID).
		Count(&otherOwners).Error
	if err != nil {
		return false, err
	}
	return otherOwners == 0, nil
}

// ListMembers lists all members of a project
func (r *GormProjectRepository) ListMembers(projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.Preload("User").
		Where("project_id = ?", projectID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembershipsByUserID lists all projects a user is a member of
func (r *GormProjectRepository) ListMembershipsByUserID(userID uint64) ([]models.ProjectMember, error) {
	var memberships []models.ProjectMember
	if err := r.db.Preload("Project").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

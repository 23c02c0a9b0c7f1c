package repository

import (
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormLabelRepository is a GORM implementation of LabelRepository
type GormLabelRepository struct {
	db *gorm.DB
}

// NewLabelRepository creates a new LabelRepository
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &GormLabelRepository{db: db}
}

// Create creates a new label. The (project_id, name) unique index turns a
// duplicate name into gorm.ErrDuplicatedKey.
func (r *GormLabelRepository) Create(label *models.Label) error {
	return r.db.Create(label).Error
}

// FindByID finds a label by ID
func (r *GormLabelRepository) FindByID(id uint64) (*models.Label, error) {
	var label models.Label
	if err := r.db.First(&label, id).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// ListByProject lists a project's labels ordered by name
func (r *GormLabelRepository) ListByProject(projectID uint64) ([]models.Label, error) {
	var labels []models.Label
	if err := r.db.Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}

// Update updates a label
func (r *GormLabelRepository) Update(label *models.Label) error {
	return r.db.Save(label).Error
}

// Delete removes a label. Join rows go first so no task keeps a dangling
// reference.
func (r *GormLabelRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_labels WHERE label_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Label{}, id).Error
	})
}

// Attach links a label to a task. Re-attaching is a no-op. Only the task's
// key participates; the caller's loaded associations are left alone.
func (r *GormLabelRepository) Attach(label *models.Label, task *models.Task) error {
	return r.db.Model(label).Association("Tasks").Append(&models.Task{ID: task.ID})
}

// Detach unlinks a label from a task. Detaching an absent link is a no-op.
func (r *GormLabelRepository) Detach(label *models.Label, task *models.Task) error {
	return r.db.Model(label).Association("Tasks").Delete(&models.Task{ID: task.ID})
}

package repository

import (
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/utils"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create appends an activity row
func (r *GormActivityRepository) Create(activity *models.Activity) error {
	return r.db.Create(activity).Error
}

// ListByProject lists a project's activity, newest first
func (r *GormActivityRepository) ListByProject(projectID uint64, page, pageSize int) ([]models.Activity, int64, error) {
	var activities []models.Activity

	query := r.db.Model(&models.Activity{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC")
	if page > 0 && pageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   page,
			Limit:  pageSize,
			Offset: (page - 1) * pageSize,
		}))
	}

	if err := listQuery.Preload("Actor").Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

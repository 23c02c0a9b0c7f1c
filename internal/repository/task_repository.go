package repository

import (
	"errors"
	"time"

	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/rank"
	"github.com/taskflow/taskflow-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrConflict is returned after the optimistic retry budget is spent;
	// the caller is expected to resubmit the request.
	ErrConflict = errors.New("task repository: concurrent position conflict")
	// ErrCrossProjectMove is returned when a reorder neighbor belongs to a
	// different project than the moved task.
	ErrCrossProjectMove = errors.New("task repository: neighbor task belongs to a different project")
	// ErrNeighborNotFound is returned when a referenced insertion neighbor
	// does not exist.
	ErrNeighborNotFound = errors.New("task repository: neighbor task not found")
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// withRowLock applies SELECT ... FOR UPDATE where the dialect supports it.
// sqlite serializes writers on its own and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Create inserts a task, computing its position key inside the transaction.
// Racing inserts into the same gap trip the (project_id, position) unique
// index and are retried against fresh state.
func (r *GormTaskRepository) Create(task *models.Task, beforeID, afterID *uint64) error {
	var err error
	for attempt := 0; attempt < constants.MaxReorderAttempts; attempt++ {
		task.ID = 0
		err = r.db.Transaction(func(tx *gorm.DB) error {
			key, err := r.positionFor(tx, task.ProjectID, 0, beforeID, afterID)
			if err != nil {
				return err
			}
			task.Position = key
			return tx.Create(task).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return ErrConflict
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves a project's tasks ascending by position
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.project_id = ?", filter.ProjectID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.Unassigned {
		query = query.Where("tasks.assignee_id IS NULL")
	} else if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_date <= ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueAfter)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("tasks.title LIKE ? OR tasks.description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.position ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Summary aggregates the project's task counts. Overdue means past due and
// not done.
func (r *GormTaskRepository) Summary(projectID uint64) (*TaskSummary, error) {
	summary := &TaskSummary{
		ByPriority: make(map[models.TaskPriority]int64),
		ByStatus:   make(map[models.TaskStatus]int64),
	}

	if err := r.db.Model(&models.Task{}).
		Where("project_id = ?", projectID).
		Count(&summary.Total).Error; err != nil {
		return nil, err
	}

	var priorityRows []struct {
		Priority models.TaskPriority
		N        int64
	}
	if err := r.db.Model(&models.Task{}).
		Select("priority, COUNT(*) AS n").
		Where("project_id = ?", projectID).
		Group("priority").
		Scan(&priorityRows).Error; err != nil {
		return nil, err
	}
	for _, row := range priorityRows {
		summary.ByPriority[row.Priority] = row.N
	}

	var statusRows []struct {
		Status models.TaskStatus
		N      int64
	}
	if err := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) AS n").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		summary.ByStatus[row.Status] = row.N
	}

	if err := r.db.Model(&models.Task{}).
		Where("project_id = ? AND due_date < ? AND status <> ?",
			projectID, time.Now(), models.TaskStatusDone).
		Count(&summary.Overdue).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

// Delete hard deletes a task and its comments. Sibling positions are not
// touched; the gap the task leaves behind is reusable.
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM task_labels WHERE task_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// Reorder moves a task into the gap between its named neighbors. Concurrent
// writers racing for one gap are serialized by the unique index; the losing
// writer recomputes against committed state, up to the retry budget.
func (r *GormTaskRepository) Reorder(taskID uint64, beforeID, afterID *uint64, touch bool) (*models.Task, error) {
	var (
		moved *models.Task
		err   error
	)
	for attempt := 0; attempt < constants.MaxReorderAttempts; attempt++ {
		moved, err = r.reorderOnce(taskID, beforeID, afterID, touch)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return moved, err
		}
	}
	return nil, ErrConflict
}

func (r *GormTaskRepository) reorderOnce(taskID uint64, beforeID, afterID *uint64, touch bool) (*models.Task, error) {
	var moved models.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := withRowLock(tx).First(&moved, taskID).Error; err != nil {
			return err
		}

		beforeKey, afterKey, err := r.resolveGap(tx, moved.ProjectID, moved.ID, beforeID, afterID)
		if err != nil {
			return err
		}

		// Already inside the requested gap: the move is a no-op. The
		// updated timestamp is bumped only on explicit request.
		if inGap(moved.Position, beforeKey, afterKey) {
			if touch {
				return tx.Model(&moved).Update("updated_at", time.Now()).Error
			}
			return nil
		}

		key, err := rank.Between(beforeKey, afterKey)
		if errors.Is(err, rank.ErrExhausted) {
			if err := r.rebalance(tx, moved.ProjectID); err != nil {
				return err
			}
			// Neighbor keys changed; recompute against the fresh layout.
			if err := tx.First(&moved, taskID).Error; err != nil {
				return err
			}
			beforeKey, afterKey, err = r.resolveGap(tx, moved.ProjectID, moved.ID, beforeID, afterID)
			if err != nil {
				return err
			}
			if inGap(moved.Position, beforeKey, afterKey) {
				return nil
			}
			key, err = rank.Between(beforeKey, afterKey)
		}
		if err != nil {
			return err
		}

		moved.Position = key
		return tx.Model(&moved).Update("position", key).Error
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// positionFor computes a position key for inserting into projectID. With no
// neighbors the task goes to the tail. excludeID is ignored when zero.
func (r *GormTaskRepository) positionFor(tx *gorm.DB, projectID, excludeID uint64, beforeID, afterID *uint64) (string, error) {
	beforeKey, afterKey, err := r.resolveGap(tx, projectID, excludeID, beforeID, afterID)
	if err != nil {
		return "", err
	}

	key, err := rank.Between(beforeKey, afterKey)
	if errors.Is(err, rank.ErrExhausted) {
		if err := r.rebalance(tx, projectID); err != nil {
			return "", err
		}
		beforeKey, afterKey, err = r.resolveGap(tx, projectID, excludeID, beforeID, afterID)
		if err != nil {
			return "", err
		}
		key, err = rank.Between(beforeKey, afterKey)
	}
	return key, err
}

// resolveGap turns neighbor task IDs into the tightest usable key gap. When
// the named neighbors are not adjacent, the gap is narrowed to the one
// immediately next to the anchoring neighbor so the computed key can never
// collide with an existing row.
func (r *GormTaskRepository) resolveGap(tx *gorm.DB, projectID, excludeID uint64, beforeID, afterID *uint64) (string, string, error) {
	var beforeKey, afterKey string

	if beforeID != nil {
		key, err := r.neighborKey(tx, projectID, *beforeID)
		if err != nil {
			return "", "", err
		}
		beforeKey = key
	}
	if afterID != nil {
		key, err := r.neighborKey(tx, projectID, *afterID)
		if err != nil {
			return "", "", err
		}
		afterKey = key
	}

	others := tx.Model(&models.Task{}).Where("project_id = ?", projectID)
	if excludeID != 0 {
		others = others.Where("id <> ?", excludeID)
	}

	switch {
	case beforeID == nil && afterID == nil:
		// Append to tail.
		var last models.Task
		err := withRowLock(others.Session(&gorm.Session{})).
			Order("position DESC").First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil
		}
		if err != nil {
			return "", "", err
		}
		return last.Position, "", nil

	case beforeID != nil:
		// Anchor right after the before-task: the effective upper bound is
		// whichever comes first, the after-key or the next existing key.
		next := others.Session(&gorm.Session{}).Where("position > ?", beforeKey)
		if afterKey != "" {
			next = next.Where("position < ?", afterKey)
		}
		var row models.Task
		err := withRowLock(next).Order("position ASC").First(&row).Error
		if err == nil {
			afterKey = row.Position
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", err
		}

	default:
		// Only after given: anchor right before it.
		prev := others.Session(&gorm.Session{}).Where("position < ?", afterKey)
		var row models.Task
		err := withRowLock(prev).Order("position DESC").First(&row).Error
		if err == nil {
			beforeKey = row.Position
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", err
		}
	}

	return beforeKey, afterKey, nil
}

func (r *GormTaskRepository) neighborKey(tx *gorm.DB, projectID, neighborID uint64) (string, error) {
	var neighbor models.Task
	if err := withRowLock(tx).First(&neighbor, neighborID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNeighborNotFound
		}
		return "", err
	}
	if neighbor.ProjectID != projectID {
		return "", ErrCrossProjectMove
	}
	return neighbor.Position, nil
}

// inGap reports whether pos already sits strictly inside (before, after),
// with empty bounds meaning open ends.
func inGap(pos, before, after string) bool {
	if before != "" && pos <= before {
		return false
	}
	if after != "" && pos >= after {
		return false
	}
	return true
}

// rebalance rewrites every position in the project with evenly spaced keys,
// preserving relative order. Two passes keep the unique index satisfied at
// every intermediate state: park each row on a key outside the rank
// alphabet, then assign the final keys.
func (r *GormTaskRepository) rebalance(tx *gorm.DB, projectID uint64) error {
	var tasks []models.Task
	if err := withRowLock(tx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&tasks).Error; err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	for _, t := range tasks {
		parked := "~" + t.Position
		if err := tx.Model(&models.Task{}).Where("id = ?", t.ID).
			UpdateColumn("position", parked).Error; err != nil {
			return err
		}
	}

	keys := rank.Spread(len(tasks))
	for i, t := range tasks {
		if err := tx.Model(&models.Task{}).Where("id = ?", t.ID).
			UpdateColumn("position", keys[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

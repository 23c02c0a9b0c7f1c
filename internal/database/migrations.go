package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// derives from the model tags. The (project_id, position) unique index lives
// on the model itself because the ordering engine depends on it.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for the ordered list scan and filters
		{"tasks", "idx_tasks_project_id", "project_id"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_assignee_id", "assignee_id"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		// Membership lookups by either side of the pair
		{"project_members", "idx_project_members_project_id", "project_id"},
		{"project_members", "idx_project_members_user_id", "user_id"},

		// Comment listing under a task
		{"comments", "idx_comments_task_id", "task_id"},
	}

	for _, idx := range indexes {
		exists, err := indexExists(db, idx.table, idx.name)
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}
		if exists {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// indexExists consults the dialect's catalog, so AddIndexes stays idempotent
// on every supported driver.
func indexExists(db *gorm.DB, table, name string) (bool, error) {
	var count int64
	var err error

	switch db.Dialector.Name() {
	case "mysql":
		err = db.Raw(`
			SELECT COUNT(*)
			FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?
		`, table, name).Count(&count).Error
	case "sqlite":
		err = db.Raw(`
			SELECT COUNT(*)
			FROM sqlite_master
			WHERE type = 'index' AND tbl_name = ? AND name = ?
		`, table, name).Count(&count).Error
	default:
		err = db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, table, name).Count(&count).Error
	}

	if err != nil {
		return false, err
	}
	return count > 0, nil
}

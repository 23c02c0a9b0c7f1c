package repository

import (
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type taskRepoEnv struct {
	db    *gorm.DB
	tasks TaskRepository
}

func setupTaskRepoEnv(t *testing.T) taskRepoEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
		&models.Label{},
	)
	require.NoError(t, err)

	user := &models.User{Email: "creator@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return taskRepoEnv{db: db, tasks: NewTaskRepository(db)}
}

func (env taskRepoEnv) createProject(t *testing.T, name string) *models.Project {
	t.Helper()
	project := &models.Project{Name: name, Status: models.ProjectStatusActive, OwnerID: 1}
	require.NoError(t, env.db.Create(project).Error)
	return project
}

func (env taskRepoEnv) createTask(t *testing.T, projectID uint64, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		ProjectID: projectID,
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		CreatorID: 1,
	}
	require.NoError(t, env.tasks.Create(task, nil, nil))
	return task
}

func (env taskRepoEnv) order(t *testing.T, projectID uint64) []string {
	t.Helper()
	tasks, _, err := env.tasks.List(TaskFilter{ProjectID: projectID})
	require.NoError(t, err)

	titles := make([]string, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	prev := ""
	for i, task := range tasks {
		titles[i] = task.Title
		if i > 0 {
			require.Less(t, prev, task.Position, "positions must be strictly increasing")
		}
		_, dup := seen[task.Position]
		require.False(t, dup, "position %q reused", task.Position)
		seen[task.Position] = struct{}{}
		prev = task.Position
	}
	return titles
}

func TestTaskCreate_AppendsToTail(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	env.createTask(t, project.ID, "A")
	env.createTask(t, project.ID, "B")
	env.createTask(t, project.ID, "C")

	require.Equal(t, []string{"A", "B", "C"}, env.order(t, project.ID))
}

func TestTaskCreate_BetweenNonAdjacentNeighborsStaysCollisionFree(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	env.createTask(t, project.ID, "B")
	c := env.createTask(t, project.ID, "C")

	// A and C are not adjacent; the insertion still lands right after A
	// without touching B.
	task := &models.Task{ProjectID: project.ID, Title: "X", Status: models.TaskStatusTodo, Priority: models.PriorityMedium, CreatorID: 1}
	require.NoError(t, env.tasks.Create(task, &a.ID, &c.ID))

	require.Equal(t, []string{"A", "X", "B", "C"}, env.order(t, project.ID))
}

func TestTaskReorder_MovesBetweenNeighbors(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	b := env.createTask(t, project.ID, "B")
	c := env.createTask(t, project.ID, "C")

	_, err := env.tasks.Reorder(c.ID, &a.ID, &b.ID, false)
	require.NoError(t, err)

	require.Equal(t, []string{"A", "C", "B"}, env.order(t, project.ID))
}

func TestTaskReorder_ToHeadAndTail(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	env.createTask(t, project.ID, "B")
	c := env.createTask(t, project.ID, "C")

	// after_id alone moves in front of that task.
	_, err := env.tasks.Reorder(c.ID, nil, &a.ID, false)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A", "B"}, env.order(t, project.ID))

	// before_id alone moves right behind that task; naming the current
	// tail moves to the end.
	tasks, _, err := env.tasks.List(TaskFilter{ProjectID: project.ID})
	require.NoError(t, err)
	tail := tasks[len(tasks)-1]

	_, err = env.tasks.Reorder(c.ID, &tail.ID, nil, false)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, env.order(t, project.ID))
}

func TestTaskReorder_NoOpKeepsPosition(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	b := env.createTask(t, project.ID, "B")
	env.createTask(t, project.ID, "C")

	// B already sits between A and C; nothing should change.
	moved, err := env.tasks.Reorder(b.ID, &a.ID, nil, false)
	require.NoError(t, err)
	require.Equal(t, b.Position, moved.Position)
	require.Equal(t, []string{"A", "B", "C"}, env.order(t, project.ID))
}

func TestTaskReorder_TouchBumpsUpdatedAt(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	b := env.createTask(t, project.ID, "B")

	var before models.Task
	require.NoError(t, env.db.First(&before, b.ID).Error)

	_, err := env.tasks.Reorder(b.ID, &a.ID, nil, true)
	require.NoError(t, err)

	var after models.Task
	require.NoError(t, env.db.First(&after, b.ID).Error)
	require.Equal(t, before.Position, after.Position)
	require.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestTaskReorder_CrossProjectNeighborRejected(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")
	other := env.createProject(t, "Other")

	a := env.createTask(t, project.ID, "A")
	foreign := env.createTask(t, other.ID, "X")

	_, err := env.tasks.Reorder(a.ID, &foreign.ID, nil, false)
	require.ErrorIs(t, err, ErrCrossProjectMove)
}

func TestTaskReorder_MissingNeighbor(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	missing := uint64(424242)

	_, err := env.tasks.Reorder(a.ID, &missing, nil, false)
	require.ErrorIs(t, err, ErrNeighborNotFound)
}

func TestTaskDelete_LeavesGapReusable(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	b := env.createTask(t, project.ID, "B")
	c := env.createTask(t, project.ID, "C")

	require.NoError(t, env.tasks.Delete(b.ID))
	require.Equal(t, []string{"A", "C"}, env.order(t, project.ID))

	// The vacated gap is immediately usable.
	task := &models.Task{ProjectID: project.ID, Title: "D", Status: models.TaskStatusTodo, Priority: models.PriorityMedium, CreatorID: 1}
	require.NoError(t, env.tasks.Create(task, &a.ID, &c.ID))
	require.Equal(t, []string{"A", "D", "C"}, env.order(t, project.ID))
}

func TestTaskCreate_GapExhaustionTriggersRebalance(t *testing.T) {
	env := setupTaskRepoEnv(t)
	project := env.createProject(t, "Launch")

	a := env.createTask(t, project.ID, "A")
	env.createTask(t, project.ID, "B")

	// Anchoring on A forces every insertion into the same shrinking gap
	// until the key space runs out and a rebalance rewrites the project.
	const inserts = 500
	for i := 0; i < inserts; i++ {
		task := &models.Task{
			ProjectID: project.ID,
			Title:     fmt.Sprintf("wedge-%d", i),
			Status:    models.TaskStatusTodo,
			Priority:  models.PriorityMedium,
			CreatorID: 1,
		}
		require.NoError(t, env.tasks.Create(task, &a.ID, nil), "insert %d", i)
	}

	titles := env.order(t, project.ID)
	require.Len(t, titles, inserts+2)
	require.Equal(t, "A", titles[0])
	require.Equal(t, "B", titles[len(titles)-1])
	require.Equal(t, fmt.Sprintf("wedge-%d", inserts-1), titles[1])
}

// expectTailScan queues the append-path gap resolution: the project's last
// task by position, locked for the duration of the transaction.
func expectTailScan(mock sqlmock.Sqlmock, projectID uint64, lastID uint64, lastPos string) {
	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE project_id = \$1 ORDER BY position DESC`).
		WithArgs(projectID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "position"}).
			AddRow(lastID, projectID, lastPos))
}

func TestTaskCreate_RetryRecomputesAgainstCommittedState(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTaskRepository(db)

	// Two writers race for the tail. This writer loses twice: each attempt
	// computes a key, hits the unique index, rolls back, and re-reads the
	// tail the winner committed. The third attempt sees position "v" and
	// must land strictly after it.
	for _, lastPos := range []string{"t", "u"} {
		mock.ExpectBegin()
		expectTailScan(mock, 1, 9, lastPos)
		mock.ExpectQuery(`INSERT INTO "tasks"`).
			WillReturnError(gorm.ErrDuplicatedKey)
		mock.ExpectRollback()
	}

	mock.ExpectBegin()
	expectTailScan(mock, 1, 10, "v")
	mock.ExpectQuery(`INSERT INTO "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	task := &models.Task{
		ProjectID: 1,
		Title:     "X",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		CreatorID: 1,
	}
	require.NoError(t, repo.Create(task, nil, nil))
	require.EqualValues(t, 11, task.ID)
	require.Greater(t, task.Position, "v")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskReorder_RetryBudgetExhaustedSurfacesConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTaskRepository(db)

	// Every attempt resolves the gap between "a" and "c", computes the same
	// contested key, and loses to a concurrent writer. After the last
	// attempt the repository stops retrying and reports the conflict.
	for attempt := 0; attempt < 3; attempt++ {
		mock.ExpectBegin()
		// Moved task, then the named before-neighbor.
		mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE "tasks"\."id" = \$1`).
			WithArgs(2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "position"}).
				AddRow(2, 1, "x"))
		mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE "tasks"\."id" = \$1`).
			WithArgs(3, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "position"}).
				AddRow(3, 1, "a"))
		// Nearest existing key above the anchor narrows the gap.
		mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE project_id = \$1 AND id <> \$2 AND position > \$3 ORDER BY position`).
			WithArgs(1, 2, "a", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "position"}).
				AddRow(4, 1, "c"))
		mock.ExpectExec(`UPDATE "tasks" SET "position"=\$1`).
			WillReturnError(gorm.ErrDuplicatedKey)
		mock.ExpectRollback()
	}

	beforeID := uint64(3)
	_, err := repo.Reorder(2, &beforeID, nil, false)
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

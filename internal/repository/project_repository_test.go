package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB wires gorm against sqlmock through the postgres dialector, so
// the SQL the repositories emit matches production.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db, mock
}

func setupMockRepo(t *testing.T) (ProjectRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := setupMockDB(t)
	return NewProjectRepository(db), mock
}

func TestResolveMember_Found(t *testing.T) {
	repo, mock := setupMockRepo(t)

	rows := sqlmock.NewRows([]string{"project_id", "user_id", "role", "joined_at"}).
		AddRow(7, 42, "member", time.Now())
	mock.ExpectQuery(`SELECT \* FROM "project_members" WHERE project_id = \$1 AND user_id = \$2`).
		WithArgs(7, 42, 1).
		WillReturnRows(rows)

	role, ok, err := repo.ResolveMember(7, 42)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.RoleMember, role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveMember_AbsenceIsData(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "project_members" WHERE project_id = \$1 AND user_id = \$2`).
		WithArgs(7, 42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "role", "joined_at"}))

	role, ok, err := repo.ResolveMember(7, 42)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeMember_AbsentMemberIsNoOp(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	// Owner-count check first: the target has no membership row.
	mock.ExpectQuery(`SELECT \* FROM "project_members" WHERE project_id = \$1 AND user_id = \$2`).
		WithArgs(7, 42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "role", "joined_at"}))
	mock.ExpectExec(`DELETE FROM "project_members" WHERE project_id = \$1 AND user_id = \$2`).
		WithArgs(7, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.RevokeMember(7, 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

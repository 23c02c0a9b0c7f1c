package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type projectServiceEnv struct {
	db       *gorm.DB
	service  *ProjectService
	userRepo repository.UserRepository
}

func setupProjectServiceEnv(t *testing.T) projectServiceEnv {
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
		&models.Activity{},
	)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	service := NewProjectService(projectRepo, userRepo, NewActivityService(activityRepo))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return projectServiceEnv{db: db, service: service, userRepo: userRepo}
}

func (env projectServiceEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hashedpassword"}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func TestCreateProject_OwnerMembershipInSameTransaction(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	role, ok, err := env.service.ResolveMember(project.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.RoleOwner, role)
}

func TestResolveMember_AbsenceIsNotAnError(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")
	stranger := env.createUser(t, "stranger@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	role, ok, err := env.service.ResolveMember(project.ID, stranger.ID)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, role)

	// Nonexistent project resolves the same way.
	_, ok, err = env.service.ResolveMember(424242, stranger.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGrantMember_UpsertsRole(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")
	target := env.createUser(t, "target@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    target.ID,
		Role:      models.RoleViewer,
	})
	require.NoError(t, err)

	// Granting again changes the role in place.
	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    target.ID,
		Role:      models.RoleMember,
	})
	require.NoError(t, err)

	role, ok, err := env.service.ResolveMember(project.ID, target.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.RoleMember, role)

	var count int64
	require.NoError(t, env.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, target.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGrantMember_InvalidRole(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    owner.ID,
		Role:      "superadmin",
	})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestGrantMember_UnknownUserAndProject(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    424242,
		Role:      models.RoleMember,
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: 424242,
		ActorID:   owner.ID,
		UserID:    owner.ID,
		Role:      models.RoleMember,
	})
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGrantMember_DemotingSoleOwnerFails(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    owner.ID,
		Role:      models.RoleMember,
	})
	require.ErrorIs(t, err, ErrOwnerRequired)

	role, _, err := env.service.ResolveMember(project.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, role)
}

func TestGrantMember_DemotionAllowedWithSecondOwner(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")
	second := env.createUser(t, "second@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    second.ID,
		Role:      models.RoleOwner,
	})
	require.NoError(t, err)

	_, err = env.service.GrantMember(GrantMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		UserID:    owner.ID,
		Role:      models.RoleViewer,
	})
	require.NoError(t, err)

	role, _, err := env.service.ResolveMember(project.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleViewer, role)
}

func TestRevokeMember_SoleOwnerFails(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	err = env.service.RevokeMember(project.ID, owner.ID, owner.ID)
	require.ErrorIs(t, err, ErrOwnerRequired)

	_, ok, err := env.service.ResolveMember(project.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRevokeMember_Idempotent(t *testing.T) {
	env := setupProjectServiceEnv(t)
	owner := env.createUser(t, "owner@example.com")
	stranger := env.createUser(t, "stranger@example.com")

	project, err := env.service.CreateProject(CreateProjectInput{
		Name:    "Launch",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)

	// Revoking a user who was never a member is a no-op.
	require.NoError(t, env.service.RevokeMember(project.ID, owner.ID, stranger.ID))
}

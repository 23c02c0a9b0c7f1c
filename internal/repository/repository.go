package repository

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// TaskRepository defines the interface for task data access. Position keys
// are assigned inside repository transactions; callers never supply them.
type TaskRepository interface {
	// Create inserts a task, computing its position. With no insertion
	// point the task is appended to the tail of the project's order.
	Create(task *models.Task, beforeID, afterID *uint64) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves a project's tasks ascending by position, with
	// filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete hard deletes a task and its comments; siblings keep their
	// positions
	Delete(id uint64) error

	// Reorder moves a task into the gap described by its neighbors and
	// returns the updated row. Only the moved task's position changes,
	// except when the gap is exhausted and a rebalance rewrites the
	// project's keys.
	Reorder(taskID uint64, beforeID, afterID *uint64, touch bool) (*models.Task, error)

	// Summary aggregates a project's task counts by priority and status
	Summary(projectID uint64) (*TaskSummary, error)
}

// TaskSummary holds aggregate task counts for one project. Overdue counts
// tasks past their due date that are not done.
type TaskSummary struct {
	Total      int64
	ByPriority map[models.TaskPriority]int64
	ByStatus   map[models.TaskStatus]int64
	Overdue    int64
}

// TaskFilter holds filtering options for listing tasks. Predicates combine
// with AND semantics.
type TaskFilter struct {
	ProjectID  uint64
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssigneeID *uint64
	Unassigned bool
	DueBefore  *time.Time
	DueAfter   *time.Time
	Search     string
	Page       int
	PageSize   int
}

// ProjectRepository defines the interface for project and membership data
// access. It is the authoritative membership index: every request resolves
// against the store, so grants and revocations are visible immediately.
type ProjectRepository interface {
	// Create creates a project and its owner membership in one transaction
	Create(project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete deletes a project, cascading to tasks, comments, memberships
	// and activity in one transaction
	Delete(id uint64) error

	// ResolveMember reports whether the user belongs to the project and
	// with which role. Absence is an outcome, not an error.
	ResolveMember(projectID, userID uint64) (models.ProjectRole, bool, error)

	// GrantMember upserts a membership. Demoting the last owner fails
	// with ErrOwnerRequired.
	GrantMember(member *models.ProjectMember) error

	// RevokeMember removes a membership; idempotent. Removing the last
	// owner fails with ErrOwnerRequired.
	RevokeMember(projectID, userID uint64) error

	// ListMembers lists all members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)

	// ListMembershipsByUserID lists all projects a user belongs to
	ListMembershipsByUserID(userID uint64) ([]models.ProjectMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(id uint64) (*models.Comment, error)

	// ListByTask lists a task's comments ascending by creation time
	ListByTask(taskID uint64) ([]models.Comment, error)

	// Delete deletes a comment
	Delete(id uint64) error
}

// LabelRepository defines the interface for label data access. Labels are
// project-scoped and attach to tasks through a join table.
type LabelRepository interface {
	// Create creates a new label; duplicate names within a project
	// surface as gorm.ErrDuplicatedKey
	Create(label *models.Label) error

	// FindByID finds a label by ID
	FindByID(id uint64) (*models.Label, error)

	// ListByProject lists a project's labels ordered by name
	ListByProject(projectID uint64) ([]models.Label, error)

	// Update updates a label
	Update(label *models.Label) error

	// Delete removes a label and detaches it from every task
	Delete(id uint64) error

	// Attach links a label to a task; idempotent
	Attach(label *models.Label, task *models.Task) error

	// Detach unlinks a label from a task; idempotent
	Detach(label *models.Label, task *models.Task) error
}

// ActivityRepository defines the interface for the project audit log
type ActivityRepository interface {
	// Create appends an activity row
	Create(activity *models.Activity) error

	// ListByProject lists a project's activity, newest first
	ListByProject(projectID uint64, page, pageSize int) ([]models.Activity, int64, error)
}

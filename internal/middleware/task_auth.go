package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
)

// RequireTaskRole gates task-scoped routes. The task is loaded once, the
// caller's membership on its project resolved once, and both stored in the
// context. A task that does not exist at all is a referential miss (404);
// a task the caller may not touch is a uniform 403.
func RequireTaskRole(tasks *services.TaskService, projects *services.ProjectService, min models.ProjectRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.GetTask(taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		role, ok, err := projects.ResolveMember(task.ProjectID, userID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok || !role.AtLeast(min) {
			apierrors.Forbidden(c)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Set(constants.ContextKeyMemberRole, role)
		c.Next()
	}
}

// GetTask retrieves the gate-loaded task from context.
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}

package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
)

// RequireProjectRole is the authorization gate for project-scoped routes.
// It resolves the caller's membership exactly once, rejects the request
// before any handler runs when the role is insufficient, and stores the
// resolved role in the context so downstream code never re-queries
// membership mid-operation.
//
// Missing membership and insufficient role both produce the same 403; the
// response must not reveal which projects exist to non-members.
func RequireProjectRole(projects *services.ProjectService, min models.ProjectRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		role, ok, err := projects.ResolveMember(projectID, userID)
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

		c.Set(constants.ContextKeyProject, projectID)
		c.Set(constants.ContextKeyMemberRole, role)
		c.Next()
	}
}

// GetProjectID retrieves the gate-resolved project ID from context.
func GetProjectID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// GetMemberRole retrieves the gate-resolved role from context.
func GetMemberRole(c *gin.Context) (models.ProjectRole, bool) {
	v, exists := c.Get(constants.ContextKeyMemberRole)
	if !exists {
		return "", false
	}
	role, ok := v.(models.ProjectRole)
	return role, ok
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// ProjectHandler coordinates project and membership HTTP handlers. Role
// checks happen in the route middleware; handlers read the resolved
// project ID and role from the request context.
type ProjectHandler struct {
	projectService  *services.ProjectService
	activityService *services.ActivityService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, activityService *services.ActivityService) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		activityService: activityService,
	}
}

// CreateProject creates a project owned by the caller.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateProjectRequest struct {
		Name        string `json:"name" binding:"required,max=200"`
		Description string `json:"description"`
		Color       string `json:"color" binding:"omitempty,max=20"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		OwnerID:     userID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns the caller's projects with their role in each.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.projectService.ListProjectsForUser(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to list projects")
		return
	}

	result := make([]dto.ProjectMembershipDTO, 0, len(memberships))
	for _, m := range memberships {
		result = append(result, dto.ProjectMembershipDTO{
			Project: dto.ToProjectDTO(m.Project),
			Role:    m.Role,
		})
	}

	c.JSON(http.StatusOK, gin.H{"projects": result})
}

// GetProject returns a project the caller is a member of.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	project, err := h.projectService.GetProject(projectID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject applies a partial update.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	type UpdateProjectRequest struct {
		Name        *string               `json:"name"`
		Description *string               `json:"description"`
		Status      *models.ProjectStatus `json:"status"`
		Color       *string               `json:"color"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if req.Status != nil && !req.Status.Valid() {
		apierrors.BadRequest(c, "status must be one of active, archived, completed")
		return
	}

	project, err := h.projectService.UpdateProject(projectID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Color:       req.Color,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject removes a project and everything under it.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	if err := h.projectService.DeleteProject(projectID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted successfully",
	})
}

// ListMembers returns all members of the project.
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	members, err := h.projectService.ListMembers(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to list members")
		return
	}

	result := make([]dto.MemberDTO, 0, len(members))
	for _, m := range members {
		result = append(result, dto.ToMemberDTO(m))
	}

	c.JSON(http.StatusOK, gin.H{"members": result})
}

// GrantMember adds a member or changes an existing member's role.
func (h *ProjectHandler) GrantMember(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	userID, _ := middleware.GetUserID(c)

	type GrantMemberRequest struct {
		UserID uint64             `json:"user_id" binding:"required"`
		Role   models.ProjectRole `json:"role" binding:"required"`
	}

	var req GrantMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.GrantMember(services.GrantMemberInput{
		ProjectID: projectID,
		ActorID:   userID,
		UserID:    req.UserID,
		Role:      req.Role,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(*member))
}

// RevokeMember removes a user's membership.
func (h *ProjectHandler) RevokeMember(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	actorID, _ := middleware.GetUserID(c)

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.projectService.RevokeMember(projectID, actorID, targetID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Membership revoked",
	})
}

// ListActivity returns the project's audit trail, newest first.
func (h *ProjectHandler) ListActivity(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	params := utils.GetPaginationParams(c)

	activities, total, err := h.activityService.ListForProject(projectID, params.Page, params.Limit)
	if err != nil {
		apierrors.InternalError(c, "Failed to list activity")
		return
	}

	result := make([]dto.ActivityDTO, 0, len(activities))
	for _, a := range activities {
		result = append(result, dto.ToActivityDTO(a))
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": result,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidProjectName):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidRole, err.Error(), "role")
	case errors.Is(err, services.ErrOwnerRequired):
		apierrors.RespondWithError(c, http.StatusConflict,
			apierrors.NewAPIError(apierrors.ErrCodeOwnerRequired, err.Error()))
	case errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

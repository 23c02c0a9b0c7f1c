package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// TaskHandler coordinates task HTTP handlers. The route middleware has
// already resolved the caller's membership by the time these run.
type TaskHandler struct {
	taskService    *services.TaskService
	projectService *services.ProjectService
	aiService      *services.AIService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, projectService *services.ProjectService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		projectService: projectService,
		aiService:      aiService,
	}
}

// ListTasks returns the project's tasks ascending by position.
// Supports filtering by status, priority, assignee, due date range and a
// title/description search term.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		ProjectID: projectID,
		Search:    c.Query("search"),
		Page:      params.Page,
		PageSize:  params.Limit,
	}

	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			apierrors.BadRequest(c, "status must be one of todo, in_progress, done")
			return
		}
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.Valid() {
			apierrors.BadRequest(c, "priority must be one of low, medium, high, urgent")
			return
		}
		input.Priority = &priority
	}
	if v := c.Query("assignee_id"); v != "" {
		if v == "none" {
			input.Unassigned = true
		} else {
			id, err := parseID(v)
			if err != nil {
				apierrors.BadRequest(c, "Invalid assignee_id")
				return
			}
			input.AssigneeID = &id
		}
	}
	if v := c.Query("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "due_before must be an RFC3339 timestamp")
			return
		}
		input.DueBefore = &t
	}
	if v := c.Query("due_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "due_after must be an RFC3339 timestamp")
			return
		}
		input.DueAfter = &t
	}

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateTask creates a task in the project. Without before_id/after_id the
// task lands at the tail of the project's order.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	userID, _ := middleware.GetUserID(c)

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,max=300"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		AssigneeID  *uint64             `json:"assignee_id"`
		DueDate     *time.Time          `json:"due_date"`
		BeforeID    *uint64             `json:"before_id"`
		AfterID     *uint64             `json:"after_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		ProjectID:   projectID,
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		BeforeID:    req.BeforeID,
		AfterID:     req.AfterID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns the task loaded by the route middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	taskDTO := dto.ToTaskDTO(*task)
	comments := make([]dto.CommentDTO, 0, len(task.Comments))
	for _, comment := range task.Comments {
		comments = append(comments, dto.ToCommentDTO(comment))
	}

	c.JSON(http.StatusOK, gin.H{
		"task":     taskDTO,
		"comments": comments,
	})
}

// UpdateTask applies a partial update. The raw body is inspected so a field
// sent as null (clear the assignee, drop the due date) is distinguishable
// from a field that was omitted.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput

	if v, ok := rawReq["title"]; ok {
		s, ok := v.(string)
		if !ok {
			apierrors.BadRequest(c, "title must be a string")
			return
		}
		input.Title = &s
	}
	if v, ok := rawReq["description"]; ok {
		s, ok := v.(string)
		if !ok {
			apierrors.BadRequest(c, "description must be a string")
			return
		}
		input.Description = &s
	}
	if v, ok := rawReq["status"]; ok {
		s, ok := v.(string)
		if !ok {
			apierrors.BadRequest(c, "status must be a string")
			return
		}
		status := models.TaskStatus(s)
		input.Status = &status
	}
	if v, ok := rawReq["priority"]; ok {
		s, ok := v.(string)
		if !ok {
			apierrors.BadRequest(c, "priority must be a string")
			return
		}
		priority := models.TaskPriority(s)
		input.Priority = &priority
	}
	if v, ok := rawReq["assignee_id"]; ok {
		if v == nil {
			input.ClearAssignee = true
		} else {
			n, ok := v.(float64)
			if !ok || n < 0 {
				apierrors.BadRequest(c, "assignee_id must be a user ID or null")
				return
			}
			id := uint64(n)
			input.AssigneeID = &id
		}
	}
	if v, ok := rawReq["due_date"]; ok {
		if v == nil {
			input.ClearDueDate = true
		} else {
			s, ok := v.(string)
			if !ok {
				apierrors.BadRequest(c, "due_date must be an RFC3339 timestamp or null")
				return
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				apierrors.BadRequest(c, "due_date must be an RFC3339 timestamp or null")
				return
			}
			input.DueDate = &t
		}
	}
	if v, ok := rawReq["project_id"]; ok {
		n, ok := v.(float64)
		if !ok {
			apierrors.BadRequest(c, "project_id must be a number")
			return
		}
		id := uint64(n)
		input.ProjectID = &id
	}

	updated, err := h.taskService.UpdateTask(task.ID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask removes a task. Sibling positions are untouched.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.DeleteTask(task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ReorderTask moves a task between two of its siblings. At least one
// neighbor must be named; before_id alone appends after that task, after_id
// alone prepends before it.
func (h *TaskHandler) ReorderTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	type ReorderTaskRequest struct {
		BeforeID *uint64 `json:"before_id"`
		AfterID  *uint64 `json:"after_id"`
		Touch    bool    `json:"touch"`
	}

	var req ReorderTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if req.BeforeID == nil && req.AfterID == nil {
		apierrors.BadRequest(c, "At least one of before_id or after_id is required")
		return
	}
	if req.BeforeID != nil && *req.BeforeID == task.ID {
		apierrors.BadRequest(c, "before_id cannot be the task being moved")
		return
	}
	if req.AfterID != nil && *req.AfterID == task.ID {
		apierrors.BadRequest(c, "after_id cannot be the task being moved")
		return
	}

	moved, err := h.taskService.ReorderTask(services.ReorderTaskInput{
		TaskID:   task.ID,
		ActorID:  userID,
		BeforeID: req.BeforeID,
		AfterID:  req.AfterID,
		Touch:    req.Touch,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*moved))
}

// ProjectSummary returns the project's task counts grouped by priority and
// status, plus the number of overdue tasks.
func (h *TaskHandler) ProjectSummary(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	project, err := h.projectService.GetProject(projectID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	summary, err := h.taskService.ProjectSummary(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to summarize tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":       project.Name,
		"total_tasks":   summary.Total,
		"by_priority":   summary.ByPriority,
		"by_status":     summary.ByStatus,
		"overdue_count": summary.Overdue,
	})
}

// SuggestTasks generates task suggestions for a project from free text.
// The route is not project-scoped, so membership is resolved here from the
// body. Nothing is persisted; the client creates tasks from the suggestions
// it accepts.
func (h *TaskHandler) SuggestTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SuggestTasksRequest struct {
		ProjectID uint64 `json:"project_id" binding:"required"`
		Text      string `json:"text" binding:"required"`
	}

	var req SuggestTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	role, ok, err := h.projectService.ResolveMember(req.ProjectID, userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to resolve membership")
		return
	}
	if !ok || !role.AtLeast(models.RoleMember) {
		apierrors.Forbidden(c)
		return
	}

	if h.aiService == nil {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
		return
	}

	suggestions, err := h.aiService.SuggestTasksFromText(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrAINoTasksSuggested) {
			c.JSON(http.StatusOK, gin.H{"tasks": []services.SuggestedTask{}})
			return
		}
		if errors.Is(err, services.ErrAIServiceNotConfigured) {
			apierrors.ServiceUnavailable(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to generate task suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": suggestions})
}

func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidAssignee):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidAssignee, err.Error(), "assignee_id")
	case errors.Is(err, services.ErrImmutableField):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeImmutableField, err.Error(), "project_id")
	case errors.Is(err, services.ErrCrossProjectMove):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeCrossProjectMove, err.Error(), "")
	case errors.Is(err, services.ErrNeighborsInverted):
		apierrors.RespondWithError(c, http.StatusBadRequest, apierrors.NewAPIErrorWithDetails(
			apierrors.ErrCodeInvalidInput, err.Error(),
			gin.H{"fields": []string{"before_id", "after_id"}}))
	case errors.Is(err, services.ErrReorderConflict):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

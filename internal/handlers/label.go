package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/services"
)

// LabelHandler coordinates label HTTP handlers. Label CRUD is project-scoped;
// attach and detach run against a task loaded by the route middleware.
type LabelHandler struct {
	labelService *services.LabelService
}

// NewLabelHandler creates a new LabelHandler.
func NewLabelHandler(labelService *services.LabelService) *LabelHandler {
	return &LabelHandler{labelService: labelService}
}

// ListLabels returns the project's labels.
func (h *LabelHandler) ListLabels(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	labels, err := h.labelService.ListLabels(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to list labels")
		return
	}

	result := make([]dto.LabelDTO, 0, len(labels))
	for _, label := range labels {
		result = append(result, dto.ToLabelDTO(label))
	}

	c.JSON(http.StatusOK, gin.H{"labels": result})
}

// CreateLabel creates a label in the project.
func (h *LabelHandler) CreateLabel(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	userID, _ := middleware.GetUserID(c)

	type CreateLabelRequest struct {
		Name  string `json:"name" binding:"required,max=50"`
		Color string `json:"color" binding:"omitempty,max=7"`
	}

	var req CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	label, err := h.labelService.CreateLabel(services.CreateLabelInput{
		ProjectID: projectID,
		ActorID:   userID,
		Name:      req.Name,
		Color:     req.Color,
	})
	if err != nil {
		respondLabelError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToLabelDTO(*label))
}

// UpdateLabel applies a partial update to a label.
func (h *LabelHandler) UpdateLabel(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)

	labelID, err := parseID(c.Param("label_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid label ID")
		return
	}

	type UpdateLabelRequest struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}

	var req UpdateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	label, err := h.labelService.UpdateLabel(projectID, labelID, services.UpdateLabelInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		respondLabelError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToLabelDTO(*label))
}

// DeleteLabel removes a label, detaching it from every task.
func (h *LabelHandler) DeleteLabel(c *gin.Context) {
	projectID, _ := middleware.GetProjectID(c)
	userID, _ := middleware.GetUserID(c)

	labelID, err := parseID(c.Param("label_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid label ID")
		return
	}

	if err := h.labelService.DeleteLabel(projectID, labelID, userID); err != nil {
		respondLabelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label deleted successfully",
	})
}

// AttachLabel attaches a label of the task's project to the task.
func (h *LabelHandler) AttachLabel(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	type AttachLabelRequest struct {
		LabelID uint64 `json:"label_id" binding:"required"`
	}

	var req AttachLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	label, err := h.labelService.AttachLabel(task, req.LabelID, userID)
	if err != nil {
		respondLabelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label attached",
		"label":   dto.ToLabelDTO(*label),
	})
}

// DetachLabel removes a label from the task.
func (h *LabelHandler) DetachLabel(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	labelID, err := parseID(c.Param("label_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid label ID")
		return
	}

	if err := h.labelService.DetachLabel(task, labelID, userID); err != nil {
		respondLabelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label detached",
	})
}

func respondLabelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLabelNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrLabelNameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrLabelNameTaken):
		apierrors.RespondWithError(c, http.StatusConflict,
			apierrors.NewAPIError(apierrors.ErrCodeAlreadyExists, err.Error()))
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

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

// CommentHandler coordinates task comment HTTP handlers.
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// ListComments returns the task's comments in creation order.
func (h *CommentHandler) ListComments(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	comments, err := h.commentService.ListComments(task.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to list comments")
		return
	}

	result := make([]dto.CommentDTO, 0, len(comments))
	for _, comment := range comments {
		result = append(result, dto.ToCommentDTO(comment))
	}

	c.JSON(http.StatusOK, gin.H{"comments": result})
}

// AddComment appends a comment to the task.
func (h *CommentHandler) AddComment(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	userID, _ := middleware.GetUserID(c)

	type AddCommentRequest struct {
		Body string `json:"body" binding:"required"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(task.ID, userID, req.Body)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// DeleteComment removes a comment; only its author may do so.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	commentID, err := parseID(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid comment ID")
		return
	}

	if err := h.commentService.DeleteComment(commentID, userID); err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment deleted successfully",
	})
}

func respondCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCommentBodyEmpty):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotCommentAuthor):
		apierrors.Forbidden(c)
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

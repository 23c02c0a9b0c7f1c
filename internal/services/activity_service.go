package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
)

// ActivityService records the project audit trail. Logging failures are
// reported but never fail the operation that triggered them.
type ActivityService struct {
	activityRepo repository.ActivityRepository
}

// NewActivityService creates a new ActivityService.
func NewActivityService(activityRepo repository.ActivityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo}
}

func (s *ActivityService) log(actorID, projectID uint64, action models.ActivityAction, taskID *uint64, description string, details map[string]any) {
	activity := &models.Activity{
		ProjectID:   projectID,
		ActorID:     actorID,
		Action:      action,
		TaskID:      taskID,
		Description: description,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			activity.Details = string(raw)
		}
	}

	if err := s.activityRepo.Create(activity); err != nil {
		log.Printf("failed to record activity %s on project %d: %v", action, projectID, err)
	}
}

// TaskCreated records a task creation.
func (s *ActivityService) TaskCreated(actorID uint64, task *models.Task) {
	s.log(actorID, task.ProjectID, models.ActivityTaskCreated, &task.ID,
		fmt.Sprintf("created task %q", task.Title), nil)
}

// TaskUpdated records a field-level task update.
func (s *ActivityService) TaskUpdated(actorID uint64, task *models.Task, changes map[string]any) {
	s.log(actorID, task.ProjectID, models.ActivityTaskUpdated, &task.ID,
		fmt.Sprintf("updated task %q", task.Title), changes)
}

// TaskDeleted records a task deletion.
func (s *ActivityService) TaskDeleted(actorID, projectID uint64, title string) {
	s.log(actorID, projectID, models.ActivityTaskDeleted, nil,
		fmt.Sprintf("deleted task %q", title), nil)
}

// TaskReordered records a position change.
func (s *ActivityService) TaskReordered(actorID uint64, task *models.Task) {
	s.log(actorID, task.ProjectID, models.ActivityTaskReordered, &task.ID,
		fmt.Sprintf("moved task %q", task.Title), nil)
}

// MemberGranted records a membership grant or role change.
func (s *ActivityService) MemberGranted(actorID, projectID, userID uint64, role models.ProjectRole) {
	s.log(actorID, projectID, models.ActivityMemberGranted, nil,
		fmt.Sprintf("granted %s access to user %d", role, userID),
		map[string]any{"user_id": userID, "role": role})
}

// MemberRevoked records a membership revocation.
func (s *ActivityService) MemberRevoked(actorID, projectID, userID uint64) {
	s.log(actorID, projectID, models.ActivityMemberRevoked, nil,
		fmt.Sprintf("revoked access for user %d", userID),
		map[string]any{"user_id": userID})
}

// LabelCreated records a label creation.
func (s *ActivityService) LabelCreated(actorID uint64, label *models.Label) {
	s.log(actorID, label.ProjectID, models.ActivityLabelCreated, nil,
		fmt.Sprintf("created label %q", label.Name), nil)
}

// LabelRemoved records a label deletion.
func (s *ActivityService) LabelRemoved(actorID, projectID uint64, name string) {
	s.log(actorID, projectID, models.ActivityLabelRemoved, nil,
		fmt.Sprintf("removed label %q", name), nil)
}

// LabelAttached records a label being attached to a task.
func (s *ActivityService) LabelAttached(actorID uint64, task *models.Task, label *models.Label) {
	s.log(actorID, task.ProjectID, models.ActivityLabelAttached, &task.ID,
		fmt.Sprintf("attached label %q to task %q", label.Name, task.Title),
		map[string]any{"label_id": label.ID})
}

// LabelDetached records a label being detached from a task.
func (s *ActivityService) LabelDetached(actorID uint64, task *models.Task, label *models.Label) {
	s.log(actorID, task.ProjectID, models.ActivityLabelDetached, &task.ID,
		fmt.Sprintf("detached label %q from task %q", label.Name, task.Title),
		map[string]any{"label_id": label.ID})
}

// ListForProject returns a project's activity, newest first.
func (s *ActivityService) ListForProject(projectID uint64, page, pageSize int) ([]models.Activity, int64, error) {
	return s.activityRepo.ListByProject(projectID, page, pageSize)
}

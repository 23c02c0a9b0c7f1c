package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
)

// taskLabels fetches the task as userID and returns the attached label names.
func (suite *TaskHandlerTestSuite) taskLabels(taskID, userID uint64) []string {
	w := suite.do("GET", fmt.Sprintf("/api/tasks/%d", taskID), nil, userID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Task struct {
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
		} `json:"task"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))

	names := make([]string, len(response.Task.Labels))
	for i, label := range response.Task.Labels {
		names[i] = label.Name
	}
	return names
}

func (suite *TaskHandlerTestSuite) TestLabels_CreateAttachDetach() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Launch", owner.ID)
	task := suite.createTestTask("A", project.ID, owner.ID)

	w := suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", project.ID),
		map[string]any{"name": "bug", "color": "#ef4444"}, owner.ID)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var label struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &label))
	assert.Equal(suite.T(), "bug", label.Name)
	assert.Equal(suite.T(), "#ef4444", label.Color)

	w = suite.do("POST", fmt.Sprintf("/api/tasks/%d/labels", task.ID),
		map[string]any{"label_id": label.ID}, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	assert.Equal(suite.T(), []string{"bug"}, suite.taskLabels(task.ID, owner.ID))

	// Attaching again changes nothing.
	w = suite.do("POST", fmt.Sprintf("/api/tasks/%d/labels", task.ID),
		map[string]any{"label_id": label.ID}, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), []string{"bug"}, suite.taskLabels(task.ID, owner.ID))

	w = suite.do("DELETE", fmt.Sprintf("/api/tasks/%d/labels/%d", task.ID, label.ID), nil, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Empty(suite.T(), suite.taskLabels(task.ID, owner.ID))
}

func (suite *TaskHandlerTestSuite) TestLabelCreate_DuplicateName() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Launch", owner.ID)

	w := suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", project.ID),
		map[string]any{"name": "bug"}, owner.ID)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", project.ID),
		map[string]any{"name": "bug"}, owner.ID)
	suite.Require().Equal(http.StatusConflict, w.Code, w.Body.String())

	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "ALREADY_EXISTS", response["code"])
}

func (suite *TaskHandlerTestSuite) TestLabelAttach_OtherProjectLabel() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Launch", owner.ID)
	other := suite.createTestProject("Other", owner.ID)
	task := suite.createTestTask("A", project.ID, owner.ID)

	w := suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", other.ID),
		map[string]any{"name": "elsewhere"}, owner.ID)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var label struct {
		ID uint64 `json:"id"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &label))

	w = suite.do("POST", fmt.Sprintf("/api/tasks/%d/labels", task.ID),
		map[string]any{"label_id": label.ID}, owner.ID)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code, w.Body.String())
	assert.Empty(suite.T(), suite.taskLabels(task.ID, owner.ID))
}

func (suite *TaskHandlerTestSuite) TestLabelDelete_DetachesFromTasks() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Launch", owner.ID)
	task := suite.createTestTask("A", project.ID, owner.ID)

	w := suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", project.ID),
		map[string]any{"name": "bug"}, owner.ID)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var label struct {
		ID uint64 `json:"id"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &label))

	w = suite.do("POST", fmt.Sprintf("/api/tasks/%d/labels", task.ID),
		map[string]any{"label_id": label.ID}, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.do("DELETE", fmt.Sprintf("/api/projects/%d/labels/%d", project.ID, label.ID), nil, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	assert.Empty(suite.T(), suite.taskLabels(task.ID, owner.ID))

	w = suite.do("GET", fmt.Sprintf("/api/projects/%d/labels", project.ID), nil, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code)

	var list struct {
		Labels []any `json:"labels"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(suite.T(), list.Labels)
}

func (suite *TaskHandlerTestSuite) TestLabels_ViewerCannotMutate() {
	owner := suite.createTestUser("owner@example.com")
	viewer := suite.createTestUser("viewer@example.com")
	project := suite.createTestProject("Launch", owner.ID)
	suite.addMember(project.ID, viewer.ID, models.RoleViewer)

	w := suite.do("POST", fmt.Sprintf("/api/projects/%d/labels", project.ID),
		map[string]any{"name": "bug"}, viewer.ID)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do("GET", fmt.Sprintf("/api/projects/%d/labels", project.ID), nil, viewer.ID)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestProjectPrioritySummary() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Launch", owner.ID)

	yesterday := time.Now().Add(-24 * time.Hour)
	seed := []struct {
		title    string
		priority models.TaskPriority
		status   models.TaskStatus
		due      *time.Time
	}{
		{"urgent-open", models.PriorityUrgent, models.TaskStatusTodo, &yesterday},
		{"high-open", models.PriorityHigh, models.TaskStatusInProgress, nil},
		{"high-done", models.PriorityHigh, models.TaskStatusDone, &yesterday},
		{"low-open", models.PriorityLow, models.TaskStatusTodo, nil},
	}
	for _, s := range seed {
		_, err := suite.taskService.CreateTask(services.CreateTaskInput{
			ProjectID: project.ID,
			CreatorID: owner.ID,
			Title:     s.title,
			Priority:  s.priority,
			Status:    s.status,
			DueDate:   s.due,
		})
		suite.Require().NoError(err)
	}

	w := suite.do("GET", fmt.Sprintf("/api/projects/%d/priority-summary", project.ID), nil, owner.ID)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Project      string           `json:"project"`
		TotalTasks   int64            `json:"total_tasks"`
		ByPriority   map[string]int64 `json:"by_priority"`
		ByStatus     map[string]int64 `json:"by_status"`
		OverdueCount int64            `json:"overdue_count"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(suite.T(), "Launch", response.Project)
	assert.EqualValues(suite.T(), 4, response.TotalTasks)
	assert.Equal(suite.T(), map[string]int64{
		"low": 1, "medium": 0, "high": 2, "urgent": 1,
	}, response.ByPriority)
	assert.Equal(suite.T(), map[string]int64{
		"todo": 2, "in_progress": 1, "done": 1,
	}, response.ByStatus)
	// high-done is past due but finished; only urgent-open counts.
	assert.EqualValues(suite.T(), 1, response.OverdueCount)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/models"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksSuggested     = errors.New("AI did not suggest any tasks")
)

type AIService struct {
	client *openai.Client
}

// SuggestedTask is an AI-proposed task with an estimated effort and
// priority; nothing is persisted until the client accepts a suggestion.
type SuggestedTask struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Priority       models.TaskPriority `json:"priority"`
	EstimatedHours int                 `json:"estimated_hours"`
	DueDate        *time.Time          `json:"due_date"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// SuggestTasksFromText analyzes free text and proposes concrete tasks.
func (s *AIService) SuggestTasksFromText(ctx context.Context, text string) ([]SuggestedTask, error) {
	if s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}

	currentTime := time.Now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this shape:
[
  {
    "title": "short task title",
    "description": "detailed description",
    "priority": "one of low, medium, high, urgent",
    "estimated_hours": 2,
    "due_date": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null when the text names none"
  }
]

Rules:
- Return an empty array [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next week") to concrete timestamps
- Return only JSON, no surrounding prose`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var tasks []SuggestedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return sanitizeSuggestions(tasks)
}

// sanitizeSuggestions drops blank or stale suggestions and clamps the rest.
func sanitizeSuggestions(tasks []SuggestedTask) ([]SuggestedTask, error) {
	if len(tasks) == 0 {
		return nil, ErrAINoTasksSuggested
	}
	if len(tasks) > constants.MaxAISuggestedTasks {
		tasks = tasks[:constants.MaxAISuggestedTasks]
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	valid := make([]SuggestedTask, 0, len(tasks))
	for _, t := range tasks {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		if !t.Priority.Valid() {
			t.Priority = models.PriorityMedium
		}
		if t.DueDate != nil && t.DueDate.Before(cutoff) {
			t.DueDate = nil
		}
		valid = append(valid, t)
	}

	if len(valid) == 0 {
		return nil, ErrAINoTasksSuggested
	}
	return valid, nil
}

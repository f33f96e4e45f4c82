package dto

import (
	"time"

	"github.com/classhive/classhive-api/internal/models"
)

// Lifecycle actions accepted when creating or updating an assignment.
const (
	AssignmentActionDraft    = "draft"
	AssignmentActionPublish  = "publish"
	AssignmentActionWithdraw = "withdraw"
)

// QuestionInput is one prompt in a create or update payload.
type QuestionInput struct {
	Prompt         string `json:"prompt" validate:"required"`
	KnowledgePoint string `json:"knowledge_point" validate:"required"`
}

// CreateAssignmentRequest is the payload for authoring an assignment. Action
// selects the initial lifecycle state and defaults to publish.
type CreateAssignmentRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	Content   string          `json:"content" validate:"required"`
	CourseID  *uint           `json:"course_id"`
	DueDate   *time.Time      `json:"due_date"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
	Action    string          `json:"action" validate:"omitempty,oneof=draft publish"`
}

// UpdateAssignmentRequest edits an assignment in place. A non-empty Action
// also moves it through the lifecycle in the same call.
type UpdateAssignmentRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	Content   string          `json:"content" validate:"required"`
	CourseID  *uint           `json:"course_id"`
	DueDate   *time.Time      `json:"due_date"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
	Action    string          `json:"action" validate:"omitempty,oneof=draft publish withdraw"`
}

// QuestionResponse mirrors a stored question.
type QuestionResponse struct {
	ID             uint   `json:"id"`
	Prompt         string `json:"prompt"`
	KnowledgePoint string `json:"knowledge_point"`
}

// AssignmentResponse is the API shape of an assignment. Submitted is only
// populated on student-facing listings.
type AssignmentResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	TeacherID   uint               `json:"teacher_id"`
	CourseID    *uint              `json:"course_id"`
	DueDate     *time.Time         `json:"due_date"`
	Status      string             `json:"status"`
	WithdrawnAt *time.Time         `json:"withdrawn_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Questions   []QuestionResponse `json:"questions"`
	Submitted   *bool              `json:"submitted,omitempty"`
}

// ToAssignmentResponse converts a model into its API shape.
func ToAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	questions := make([]QuestionResponse, 0, len(assignment.Questions))
	for _, question := range assignment.Questions {
		questions = append(questions, QuestionResponse{
			ID:             question.ID,
			Prompt:         question.Prompt,
			KnowledgePoint: question.KnowledgePoint,
		})
	}

	return AssignmentResponse{
		ID:          assignment.ID,
		Title:       assignment.Title,
		Content:     assignment.Content,
		TeacherID:   assignment.TeacherID,
		CourseID:    assignment.CourseID,
		DueDate:     assignment.DueDate,
		Status:      string(assignment.Status),
		WithdrawnAt: assignment.WithdrawnAt,
		CreatedAt:   assignment.CreatedAt,
		UpdatedAt:   assignment.UpdatedAt,
		Questions:   questions,
	}
}

// ToAssignmentResponses converts a slice of models.
func ToAssignmentResponses(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, ToAssignmentResponse(assignment))
	}
	return responses
}

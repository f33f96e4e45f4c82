package dto

import (
	"io"
	"time"

	"github.com/classhive/classhive-api/internal/models"
)

// SubmitInput carries everything the submission service needs for an upsert.
// File is optional; when present the stored upload replaces any previous one.
type SubmitInput struct {
	AssignmentID uint
	StudentID    uint
	Content      string
	FileName     string
	FileSize     int64
	File         io.Reader
}

// GradeSubmissionRequest is the teacher's manual grading payload.
type GradeSubmissionRequest struct {
	Grade          string `json:"grade" validate:"required,max=10"`
	TeacherComment string `json:"teacher_comment" validate:"max=2000"`
}

// SubmissionResponse is the API shape of a submission.
type SubmissionResponse struct {
	ID               uint      `json:"id"`
	AssignmentID     uint      `json:"assignment_id"`
	AssignmentTitle  string    `json:"assignment_title,omitempty"`
	StudentID        uint      `json:"student_id"`
	Content          string    `json:"content"`
	FileName         string    `json:"file_name"`
	HasFile          bool      `json:"has_file"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Grade            *string   `json:"grade"`
	AIScore          *float64  `json:"ai_score"`
	EvaluationResult *string   `json:"evaluation_result"`
	TeacherComment   *string   `json:"teacher_comment"`
}

// ToSubmissionResponse converts a model into its API shape.
func ToSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               submission.ID,
		AssignmentID:     submission.AssignmentID,
		AssignmentTitle:  submission.Assignment.Title,
		StudentID:        submission.StudentID,
		Content:          submission.Content,
		FileName:         submission.FileName,
		HasFile:          submission.FilePath != "",
		SubmittedAt:      submission.SubmittedAt,
		Grade:            submission.Grade,
		AIScore:          submission.AIScore,
		EvaluationResult: submission.EvaluationResult,
		TeacherComment:   submission.TeacherComment,
	}
}

// ToSubmissionResponses converts a slice of models.
func ToSubmissionResponses(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, ToSubmissionResponse(submission))
	}
	return responses
}

package models

import "time"

// Submission is a student's single, mutable attempt at an assignment.
// Resubmitting updates the existing row; the (assignment, student) pair is
// unique. EvaluationResult is the memoized output of the review pipeline and
// is written at most once.
type Submission struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	AssignmentID     uint       `gorm:"not null;uniqueIndex:uq_assignment_student" json:"assignment_id"`
	StudentID        uint       `gorm:"not null;uniqueIndex:uq_assignment_student" json:"student_id"`
	Content          string     `gorm:"type:text" json:"content"`
	FilePath         string     `gorm:"size:500" json:"-"`
	FileName         string     `gorm:"size:255" json:"file_name"`
	SubmittedAt      time.Time  `gorm:"not null" json:"submitted_at"`
	Grade            *string    `gorm:"size:10" json:"grade"`
	AIScore          *float64   `json:"ai_score"`
	EvaluationResult *string    `gorm:"type:text" json:"evaluation_result"`
	TeacherComment   *string    `gorm:"type:text" json:"teacher_comment"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Assignment       Assignment `gorm:"constraint:OnUpdate:CASCADE" json:"-"`
}

// Evaluated reports whether the review pipeline already produced a result
// for this submission.
func (s Submission) Evaluated() bool {
	return s.EvaluationResult != nil && *s.EvaluationResult != ""
}

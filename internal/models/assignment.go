package models

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	// AssignmentStatusDraft hides the assignment from students entirely.
	AssignmentStatusDraft AssignmentStatus = "draft"
	// AssignmentStatusPublished makes the assignment visible and submittable.
	AssignmentStatusPublished AssignmentStatus = "published"
	// AssignmentStatusWithdrawn keeps existing submissions visible to the
	// teacher but rejects new ones until the assignment is republished.
	AssignmentStatusWithdrawn AssignmentStatus = "withdrawn"
)

// Assignment is a teacher-authored task. WithdrawnAt is owned by the
// transition methods below and is non-nil exactly when Status is withdrawn;
// callers must not write Status or WithdrawnAt directly.
type Assignment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	TeacherID   uint             `gorm:"not null;index" json:"teacher_id"`
	CourseID    *uint            `gorm:"index" json:"course_id"`
	DueDate     *time.Time       `json:"due_date"`
	Status      AssignmentStatus `gorm:"size:20;not null;default:published" json:"status"`
	WithdrawnAt *time.Time       `json:"withdrawn_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Questions   []Question       `json:"questions"`
}

// Question is a single prompt owned by an assignment and deleted with it.
type Question struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	AssignmentID   uint   `gorm:"not null;index" json:"assignment_id"`
	Prompt         string `gorm:"type:text;not null" json:"prompt"`
	KnowledgePoint string `gorm:"size:255;not null" json:"knowledge_point"`
}

// Publish opens (or re-opens) the assignment for submissions.
func (a *Assignment) Publish() {
	a.Status = AssignmentStatusPublished
	a.WithdrawnAt = nil
}

// Withdraw closes the assignment for new submissions without deleting it.
func (a *Assignment) Withdraw(now time.Time) {
	a.Status = AssignmentStatusWithdrawn
	withdrawnAt := now
	a.WithdrawnAt = &withdrawnAt
}

// SaveDraft returns the assignment to the draft state.
func (a *Assignment) SaveDraft() {
	a.Status = AssignmentStatusDraft
	a.WithdrawnAt = nil
}

// AcceptsSubmissions reports whether students may currently submit.
func (a Assignment) AcceptsSubmissions() bool {
	return a.Status == AssignmentStatusPublished
}

// OwnedBy reports whether the given teacher authored the assignment.
func (a Assignment) OwnedBy(teacherID uint) bool {
	return a.TeacherID == teacherID
}

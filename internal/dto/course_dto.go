package dto

import (
	"io"
	"time"

	"github.com/classhive/classhive-api/internal/models"
)

// CreateCourseRequest is the payload for opening a new course.
type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=5000"`
}

// JoinCourseRequest enrolls the caller using an invite code.
type JoinCourseRequest struct {
	InviteCode string `json:"invite_code" validate:"required,len=6"`
}

// CourseResponse is the API shape of a course.
type CourseResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"invite_code,omitempty"`
	TeacherID   uint      `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToCourseResponse converts a model into its API shape. The invite code is
// only included for the owning teacher.
func ToCourseResponse(course models.Course, includeInvite bool) CourseResponse {
	response := CourseResponse{
		ID:          course.ID,
		Name:        course.Name,
		Description: course.Description,
		TeacherID:   course.TeacherID,
		CreatedAt:   course.CreatedAt,
	}
	if includeInvite {
		response.InviteCode = course.InviteCode
	}
	return response
}

// ToCourseResponses converts a slice of models.
func ToCourseResponses(courses []models.Course, includeInvite bool) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, ToCourseResponse(course, includeInvite))
	}
	return responses
}

// EnrollmentResponse is one roster row.
type EnrollmentResponse struct {
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	Username    string    `json:"username"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ToEnrollmentResponses converts roster rows with their preloaded students.
func ToEnrollmentResponses(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, EnrollmentResponse{
			StudentID:   enrollment.StudentID,
			StudentName: enrollment.Student.Name,
			Username:    enrollment.Student.Username,
			JoinedAt:    enrollment.JoinedAt,
		})
	}
	return responses
}

// UploadMaterialInput carries a material upload into the course service.
type UploadMaterialInput struct {
	CourseID    uint
	TeacherID   uint
	Title       string
	Kind        string
	Description string
	FileName    string
	FileSize    int64
	File        io.Reader
	Published   bool
}

// MaterialResponse is the API shape of a course material.
type MaterialResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Title       string    `json:"title"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToMaterialResponse converts a model into its API shape.
func ToMaterialResponse(material models.CourseMaterial) MaterialResponse {
	return MaterialResponse{
		ID:          material.ID,
		CourseID:    material.CourseID,
		Title:       material.Title,
		Kind:        material.Kind,
		FileName:    material.FileName,
		FileSize:    material.FileSize,
		Description: material.Description,
		Published:   material.Published,
		CreatedAt:   material.CreatedAt,
	}
}

// ToMaterialResponses converts a slice of models.
func ToMaterialResponses(materials []models.CourseMaterial) []MaterialResponse {
	responses := make([]MaterialResponse, 0, len(materials))
	for _, material := range materials {
		responses = append(responses, ToMaterialResponse(material))
	}
	return responses
}

// CascadeDeleteResult summarizes a destructive delete: how many stored files
// were released and which removals failed. File errors never abort the delete.
type CascadeDeleteResult struct {
	FilesRemoved int      `json:"files_removed"`
	FileErrors   []string `json:"file_errors,omitempty"`
}

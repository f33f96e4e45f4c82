package models

import "time"

// Course groups assignments and materials behind an invite code.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	InviteCode  string    `gorm:"size:10;uniqueIndex;not null" json:"invite_code"`
	TeacherID   uint      `gorm:"not null;index" json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment links a student to a course. The (course, student) pair is unique.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:uq_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:uq_course_student" json:"student_id"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	Student   User      `gorm:"foreignKey:StudentID" json:"-"`
}

// CourseMaterial is a teacher-uploaded resource. Students only see it once
// the teacher has published it.
type CourseMaterial struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	TeacherID   uint      `gorm:"not null" json:"teacher_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Kind        string    `gorm:"size:50;not null" json:"kind"`
	FilePath    string    `gorm:"size:500;not null" json:"-"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Description string    `gorm:"type:text" json:"description"`
	Published   bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time `json:"created_at"`
}

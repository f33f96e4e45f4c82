package models

import "time"

// Roles a platform account can hold.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a platform account. Authentication happens at the edge; the core
// only cares about identity and role.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:120" json:"email,omitempty"`
	Role      string    `gorm:"size:10;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsTeacher reports whether the account holds the teacher role.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

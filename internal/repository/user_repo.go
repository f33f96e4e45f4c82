package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/models"
)

// UserRepository defines persistence operations for accounts, including the
// destructive account-removal cascades.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	DeleteStudentCascade(ctx context.Context, studentID uint) ([]string, error)
	DeleteTeacherCascade(ctx context.Context, teacherID uint) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// DeleteStudentCascade removes a student account along with their
// enrollments and submissions, returning the upload paths the caller must
// release afterwards.
func (r *userRepository) DeleteStudentCascade(ctx context.Context, studentID uint) ([]string, error) {
	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("student_id = ? AND file_path <> ''", studentID).
			Pluck("file_path", &files).Error; err != nil {
			return err
		}

		if err := tx.Where("student_id = ?", studentID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}

		if err := tx.Where("student_id = ?", studentID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND role = ?", studentID, models.RoleStudent).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// DeleteTeacherCascade removes a teacher account with every course they own,
// every assignment they authored, and all dependent rows. Course deletion
// reuses the same ordered cascade the course repository applies.
func (r *userRepository) DeleteTeacherCascade(ctx context.Context, teacherID uint) ([]string, error) {
	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var courseIDs []uint
		if err := tx.Model(&models.Course{}).
			Where("teacher_id = ?", teacherID).
			Pluck("id", &courseIDs).Error; err != nil {
			return err
		}

		for _, courseID := range courseIDs {
			courseFiles, err := deleteCourseTx(tx, courseID)
			if err != nil {
				return err
			}
			files = append(files, courseFiles...)
		}

		// Assignments not attached to any course still belong to the teacher.
		var looseAssignmentIDs []uint
		if err := tx.Model(&models.Assignment{}).
			Where("teacher_id = ?", teacherID).
			Pluck("id", &looseAssignmentIDs).Error; err != nil {
			return err
		}

		for _, assignmentID := range looseAssignmentIDs {
			assignmentFiles, err := deleteAssignmentTx(tx, assignmentID)
			if err != nil {
				return err
			}
			files = append(files, assignmentFiles...)
		}

		result := tx.Where("id = ? AND role = ?", teacherID, models.RoleTeacher).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/models"
)

// AssignmentRepository defines persistence operations for assignments and
// their owned questions.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error)
	ListVisibleToStudent(ctx context.Context, enrolledCourseIDs []uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error
	DeleteCascade(ctx context.Context, id uint) ([]string, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Preload("Questions").First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Questions").
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

// ListVisibleToStudent returns published assignments that are either unscoped
// or scoped to one of the student's courses. The filter runs on every call;
// visibility is never cached.
func (r *assignmentRepository) ListVisibleToStudent(ctx context.Context, enrolledCourseIDs []uint) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).
		Preload("Questions").
		Where("status = ?", models.AssignmentStatusPublished)

	if len(enrolledCourseIDs) > 0 {
		query = query.Where("course_id IS NULL OR course_id IN ?", enrolledCourseIDs)
	} else {
		query = query.Where("course_id IS NULL")
	}

	var assignments []models.Assignment
	if err := query.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: false}).Save(assignment).Error
}

func (r *assignmentRepository) ReplaceQuestions(ctx context.Context, assignmentID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].AssignmentID = assignmentID
		}

		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
}

// DeleteCascade removes the assignment together with its questions and
// submissions in one transaction and returns the stored-file paths the
// caller must release afterwards.
func (r *assignmentRepository) DeleteCascade(ctx context.Context, id uint) ([]string, error) {
	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		collected, err := deleteAssignmentTx(tx, id)
		if err != nil {
			return err
		}
		files = collected
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// deleteAssignmentTx performs the ordered deletes for one assignment inside
// an open transaction and reports the orphaned file paths.
func deleteAssignmentTx(tx *gorm.DB, assignmentID uint) ([]string, error) {
	var files []string
	if err := tx.Model(&models.Submission{}).
		Where("assignment_id = ? AND file_path <> ''", assignmentID).
		Pluck("file_path", &files).Error; err != nil {
		return nil, err
	}

	if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Submission{}).Error; err != nil {
		return nil, err
	}

	if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Question{}).Error; err != nil {
		return nil, err
	}

	result := tx.Delete(&models.Assignment{}, assignmentID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return files, nil
}

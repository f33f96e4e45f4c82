package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	StoreEvaluation(ctx context.Context, id uint, narrative string, score *float64) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Preload("Assignment")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// StoreEvaluation writes the review result only when none is stored yet,
// guarding against a duplicate concurrent preview losing a write. It reports
// whether this call won the write.
func (r *submissionRepository) StoreEvaluation(ctx context.Context, id uint, narrative string, score *float64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND (evaluation_result IS NULL OR evaluation_result = '')", id).
		Updates(map[string]interface{}{
			"evaluation_result": narrative,
			"ai_score":          score,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

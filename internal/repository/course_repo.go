package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/models"
)

// CourseRepository defines persistence operations for courses, rosters and
// teaching materials.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetByInviteCode(ctx context.Context, code string) (models.Course, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	DeleteCascade(ctx context.Context, id uint) ([]string, error)

	Enroll(ctx context.Context, courseID, studentID uint) error
	Unenroll(ctx context.Context, courseID, studentID uint) error
	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	ListCourseIDsByStudent(ctx context.Context, studentID uint) ([]uint, error)
	ListEnrollments(ctx context.Context, courseID uint) ([]models.Enrollment, error)

	CreateMaterial(ctx context.Context, material *models.CourseMaterial) error
	GetMaterial(ctx context.Context, id uint) (models.CourseMaterial, error)
	UpdateMaterial(ctx context.Context, material *models.CourseMaterial) error
	DeleteMaterial(ctx context.Context, id uint) error
	ListMaterials(ctx context.Context, courseID uint, publishedOnly bool) ([]models.CourseMaterial, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetByInviteCode(ctx context.Context, code string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.student_id = ?", studentID).
		Order("courses.created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

// DeleteCascade removes the course with its roster, materials, assignments,
// questions and submissions in one transaction. The returned paths cover
// submission uploads and material files the caller must release.
func (r *courseRepository) DeleteCascade(ctx context.Context, id uint) ([]string, error) {
	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		collected, err := deleteCourseTx(tx, id)
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

// deleteCourseTx performs the ordered deletes for one course inside an open
// transaction and reports the orphaned file paths.
func deleteCourseTx(tx *gorm.DB, courseID uint) ([]string, error) {
	var assignmentIDs []uint
	if err := tx.Model(&models.Assignment{}).
		Where("course_id = ?", courseID).
		Pluck("id", &assignmentIDs).Error; err != nil {
		return nil, err
	}

	var files []string
	for _, assignmentID := range assignmentIDs {
		assignmentFiles, err := deleteAssignmentTx(tx, assignmentID)
		if err != nil {
			return nil, err
		}
		files = append(files, assignmentFiles...)
	}

	var materialFiles []string
	if err := tx.Model(&models.CourseMaterial{}).
		Where("course_id = ? AND file_path <> ''", courseID).
		Pluck("file_path", &materialFiles).Error; err != nil {
		return nil, err
	}
	files = append(files, materialFiles...)

	if err := tx.Where("course_id = ?", courseID).Delete(&models.CourseMaterial{}).Error; err != nil {
		return nil, err
	}

	if err := tx.Where("course_id = ?", courseID).Delete(&models.Enrollment{}).Error; err != nil {
		return nil, err
	}

	result := tx.Delete(&models.Course{}, courseID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return files, nil
}

func (r *courseRepository) Enroll(ctx context.Context, courseID, studentID uint) error {
	enrollment := models.Enrollment{CourseID: courseID, StudentID: studentID}
	return r.db.WithContext(ctx).Create(&enrollment).Error
}

func (r *courseRepository) Unenroll(ctx context.Context, courseID, studentID uint) error {
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *courseRepository) ListCourseIDsByStudent(ctx context.Context, studentID uint) ([]uint, error) {
	var courseIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("student_id = ?", studentID).
		Pluck("course_id", &courseIDs).Error; err != nil {
		return nil, err
	}

	return courseIDs, nil
}

func (r *courseRepository) ListEnrollments(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("joined_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *courseRepository) CreateMaterial(ctx context.Context, material *models.CourseMaterial) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *courseRepository) GetMaterial(ctx context.Context, id uint) (models.CourseMaterial, error) {
	var material models.CourseMaterial
	if err := r.db.WithContext(ctx).First(&material, id).Error; err != nil {
		return models.CourseMaterial{}, err
	}

	return material, nil
}

func (r *courseRepository) UpdateMaterial(ctx context.Context, material *models.CourseMaterial) error {
	return r.db.WithContext(ctx).Save(material).Error
}

func (r *courseRepository) DeleteMaterial(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CourseMaterial{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) ListMaterials(ctx context.Context, courseID uint, publishedOnly bool) ([]models.CourseMaterial, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var materials []models.CourseMaterial
	if err := query.Order("created_at DESC").Find(&materials).Error; err != nil {
		return nil, err
	}

	return materials, nil
}

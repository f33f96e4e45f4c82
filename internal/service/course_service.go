package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/pkg/storage"
)

var (
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotCourseOwner indicates a teacher tried to manage someone else's
	// course.
	ErrNotCourseOwner = errors.New("course belongs to another teacher")
	// ErrInviteCodeNotFound indicates no course matches the invite code.
	ErrInviteCodeNotFound = errors.New("invite code not recognized")
	// ErrAlreadyEnrolled indicates the student is already on the roster.
	ErrAlreadyEnrolled = errors.New("student already enrolled")
	// ErrMaterialNotFound indicates the material does not exist.
	ErrMaterialNotFound = errors.New("material not found")
)

const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 6
	inviteCodeRetries  = 5
)

// CourseService manages courses, rosters and teaching materials.
type CourseService interface {
	Create(ctx context.Context, teacherID uint, req dto.CreateCourseRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.CourseResponse, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.CourseResponse, error)
	Delete(ctx context.Context, teacherID, id uint) (dto.CascadeDeleteResult, error)

	Join(ctx context.Context, studentID uint, req dto.JoinCourseRequest) (dto.CourseResponse, error)
	Leave(ctx context.Context, studentID, courseID uint) error
	Roster(ctx context.Context, teacherID, courseID uint) ([]dto.EnrollmentResponse, error)

	UploadMaterial(ctx context.Context, input dto.UploadMaterialInput) (dto.MaterialResponse, error)
	SetMaterialPublished(ctx context.Context, teacherID, materialID uint, published bool) (dto.MaterialResponse, error)
	DeleteMaterial(ctx context.Context, teacherID, materialID uint) error
	ListMaterials(ctx context.Context, actor Actor, courseID uint) ([]dto.MaterialResponse, error)
}

type courseService struct {
	courses  repository.CourseRepository
	files    storage.FileStore
	activity ActivityService
	events   *EventPublisher
	logger   zerolog.Logger
}

// NewCourseService wires the course workflows.
func NewCourseService(
	courses repository.CourseRepository,
	files storage.FileStore,
	activity ActivityService,
	events *EventPublisher,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courses:  courses,
		files:    files,
		activity: activity,
		events:   events,
		logger:   logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, teacherID uint, req dto.CreateCourseRequest) (dto.CourseResponse, error) {
	course := models.Course{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   teacherID,
	}

	var err error
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		course.InviteCode, err = generateInviteCode()
		if err != nil {
			return dto.CourseResponse{}, err
		}

		err = s.courses.Create(ctx, &course)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CourseResponse{}, err
		}
	}
	if err != nil {
		return dto.CourseResponse{}, fmt.Errorf("failed to allocate a unique invite code: %w", err)
	}

	entityID := course.ID
	s.activity.Record(ctx, Actor{ID: teacherID, Role: models.RoleTeacher}, "course_created", "course", &entityID, map[string]interface{}{
		"name": course.Name,
	})

	return dto.ToCourseResponse(course, true), nil
}

func (s *courseService) Get(ctx context.Context, actor Actor, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if actor.Role == models.RoleTeacher {
		if course.TeacherID != actor.ID {
			return dto.CourseResponse{}, ErrNotCourseOwner
		}
		return dto.ToCourseResponse(course, true), nil
	}

	enrolled, err := s.courses.IsEnrolled(ctx, id, actor.ID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	if !enrolled {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	return dto.ToCourseResponse(course, false), nil
}

func (s *courseService) ListForTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error) {
	courses, err := s.courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.ToCourseResponses(courses, true), nil
}

func (s *courseService) ListForStudent(ctx context.Context, studentID uint) ([]dto.CourseResponse, error) {
	courses, err := s.courses.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.ToCourseResponses(courses, false), nil
}

// Delete removes the course and everything under it. Rows go atomically;
// stored files are released afterwards and failures are reported, not fatal.
func (s *courseService) Delete(ctx context.Context, teacherID, id uint) (dto.CascadeDeleteResult, error) {
	course, err := s.ownedCourse(ctx, teacherID, id)
	if err != nil {
		return dto.CascadeDeleteResult{}, err
	}

	paths, err := s.courses.DeleteCascade(ctx, course.ID)
	if err != nil {
		return dto.CascadeDeleteResult{}, err
	}

	result := removeFiles(ctx, s.files, paths, s.logger)

	entityID := course.ID
	s.activity.Record(ctx, Actor{ID: teacherID, Role: models.RoleTeacher}, "course_deleted", "course", &entityID, map[string]interface{}{
		"name": course.Name,
	})
	s.events.Publish(ctx, "course_deleted", map[string]interface{}{
		"course_id": course.ID,
		"name":      course.Name,
	})

	return result, nil
}

func (s *courseService) Join(ctx context.Context, studentID uint, req dto.JoinCourseRequest) (dto.CourseResponse, error) {
	course, err := s.courses.GetByInviteCode(ctx, req.InviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrInviteCodeNotFound
		}
		return dto.CourseResponse{}, err
	}

	enrolled, err := s.courses.IsEnrolled(ctx, course.ID, studentID)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	if enrolled {
		return dto.CourseResponse{}, ErrAlreadyEnrolled
	}

	if err := s.courses.Enroll(ctx, course.ID, studentID); err != nil {
		return dto.CourseResponse{}, err
	}

	entityID := course.ID
	s.activity.Record(ctx, Actor{ID: studentID, Role: models.RoleStudent}, "course_joined", "course", &entityID, nil)

	return dto.ToCourseResponse(course, false), nil
}

func (s *courseService) Leave(ctx context.Context, studentID, courseID uint) error {
	if err := s.courses.Unenroll(ctx, courseID, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		return err
	}

	entityID := courseID
	s.activity.Record(ctx, Actor{ID: studentID, Role: models.RoleStudent}, "course_left", "course", &entityID, nil)
	return nil
}

func (s *courseService) Roster(ctx context.Context, teacherID, courseID uint) ([]dto.EnrollmentResponse, error) {
	if _, err := s.ownedCourse(ctx, teacherID, courseID); err != nil {
		return nil, err
	}

	enrollments, err := s.courses.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.ToEnrollmentResponses(enrollments), nil
}

func (s *courseService) UploadMaterial(ctx context.Context, input dto.UploadMaterialInput) (dto.MaterialResponse, error) {
	if _, err := s.ownedCourse(ctx, input.TeacherID, input.CourseID); err != nil {
		return dto.MaterialResponse{}, err
	}

	path, err := s.files.Save(ctx, input.FileName, input.File)
	if err != nil {
		return dto.MaterialResponse{}, err
	}

	material := models.CourseMaterial{
		CourseID:    input.CourseID,
		TeacherID:   input.TeacherID,
		Title:       input.Title,
		Kind:        input.Kind,
		FilePath:    path,
		FileName:    input.FileName,
		FileSize:    input.FileSize,
		Description: input.Description,
		Published:   input.Published,
	}

	if err := s.courses.CreateMaterial(ctx, &material); err != nil {
		if removeErr := s.files.Remove(ctx, path); removeErr != nil {
			s.logger.Warn().Err(removeErr).Str("path", path).Msg("failed to discard orphaned material")
		}
		return dto.MaterialResponse{}, err
	}

	return dto.ToMaterialResponse(material), nil
}

func (s *courseService) SetMaterialPublished(ctx context.Context, teacherID, materialID uint, published bool) (dto.MaterialResponse, error) {
	material, err := s.ownedMaterial(ctx, teacherID, materialID)
	if err != nil {
		return dto.MaterialResponse{}, err
	}

	material.Published = published
	if err := s.courses.UpdateMaterial(ctx, &material); err != nil {
		return dto.MaterialResponse{}, err
	}

	return dto.ToMaterialResponse(material), nil
}

func (s *courseService) DeleteMaterial(ctx context.Context, teacherID, materialID uint) error {
	material, err := s.ownedMaterial(ctx, teacherID, materialID)
	if err != nil {
		return err
	}

	if err := s.courses.DeleteMaterial(ctx, material.ID); err != nil {
		return err
	}

	if err := s.files.Remove(ctx, material.FilePath); err != nil {
		s.logger.Warn().Err(err).Str("path", material.FilePath).Msg("failed to remove material file")
	}
	return nil
}

// ListMaterials shows teachers everything in their course; enrolled students
// only see published items.
func (s *courseService) ListMaterials(ctx context.Context, actor Actor, courseID uint) ([]dto.MaterialResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	publishedOnly := true
	if actor.Role == models.RoleTeacher {
		if course.TeacherID != actor.ID {
			return nil, ErrNotCourseOwner
		}
		publishedOnly = false
	} else {
		enrolled, err := s.courses.IsEnrolled(ctx, courseID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrCourseNotFound
		}
	}

	materials, err := s.courses.ListMaterials(ctx, courseID, publishedOnly)
	if err != nil {
		return nil, err
	}

	return dto.ToMaterialResponses(materials), nil
}

func (s *courseService) ownedCourse(ctx context.Context, teacherID, courseID uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}

	if course.TeacherID != teacherID {
		return models.Course{}, ErrNotCourseOwner
	}

	return course, nil
}

func (s *courseService) ownedMaterial(ctx context.Context, teacherID, materialID uint) (models.CourseMaterial, error) {
	material, err := s.courses.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseMaterial{}, ErrMaterialNotFound
		}
		return models.CourseMaterial{}, err
	}

	if material.TeacherID != teacherID {
		return models.CourseMaterial{}, ErrNotCourseOwner
	}

	return material, nil
}

func generateInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		index, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		code[i] = inviteCodeAlphabet[index.Int64()]
	}
	return string(code), nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/pkg/storage"
)

var (
	// ErrSubmissionNotFound indicates the submission does not exist or is not
	// visible to the caller.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNotSubmittable indicates the assignment is not currently accepting
	// submissions (draft or withdrawn).
	ErrNotSubmittable = errors.New("assignment is not accepting submissions")
	// ErrEmptySubmission indicates the payload carried neither text nor a file.
	ErrEmptySubmission = errors.New("submission needs text content or a file")
	// ErrUnsupportedFileType indicates the upload is not an accepted document.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrNotEnrolled indicates the student is not on the course roster.
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
)

// Uploads must look like what their extension claims.
var allowedUploadTypes = map[string]string{
	".txt":  "text/plain",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":  "application/pdf",
}

// SubmissionService handles student hand-ins and teacher grading.
type SubmissionService interface {
	Submit(ctx context.Context, input dto.SubmitInput) (dto.SubmissionResponse, bool, error)
	Grade(ctx context.Context, teacherID, submissionID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	ListForAssignment(ctx context.Context, teacherID, assignmentID uint) ([]dto.SubmissionResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	files       storage.FileStore
	activity    ActivityService
	events      *EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService wires the submission workflows.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	courses repository.CourseRepository,
	files storage.FileStore,
	activity ActivityService,
	events *EventPublisher,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		courses:     courses,
		files:       files,
		activity:    activity,
		events:      events,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Submit upserts the student's single submission for an assignment and
// reports whether a new row was created. A resubmission replaces content and
// file in place; the stored row keeps its identity so an earlier AI review
// stays attached. When a new file arrives it is stored before the row is
// written, and the old file is only released after the write succeeds.
func (s *submissionService) Submit(ctx context.Context, input dto.SubmitInput) (dto.SubmissionResponse, bool, error) {
	assignment, err := s.assignments.GetByID(ctx, input.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, false, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, false, err
	}

	if !assignment.AcceptsSubmissions() {
		return dto.SubmissionResponse{}, false, ErrNotSubmittable
	}

	if assignment.CourseID != nil {
		enrolled, err := s.courses.IsEnrolled(ctx, *assignment.CourseID, input.StudentID)
		if err != nil {
			return dto.SubmissionResponse{}, false, err
		}
		if !enrolled {
			return dto.SubmissionResponse{}, false, ErrNotEnrolled
		}
	}

	if strings.TrimSpace(input.Content) == "" && input.File == nil {
		return dto.SubmissionResponse{}, false, ErrEmptySubmission
	}

	var newPath string
	if input.File != nil {
		newPath, err = s.storeUpload(ctx, input.FileName, input.File)
		if err != nil {
			return dto.SubmissionResponse{}, false, err
		}
	}

	submission, err := s.submissions.GetByAssignmentAndStudent(ctx, input.AssignmentID, input.StudentID)
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		s.discardUpload(ctx, newPath)
		return dto.SubmissionResponse{}, false, err
	}

	oldPath := submission.FilePath

	submission.AssignmentID = input.AssignmentID
	submission.StudentID = input.StudentID
	submission.Content = input.Content
	submission.SubmittedAt = s.now()
	if newPath != "" {
		submission.FilePath = newPath
		submission.FileName = input.FileName
	}

	if isNew {
		err = s.submissions.Create(ctx, &submission)
	} else {
		err = s.submissions.Update(ctx, &submission)
	}
	if err != nil {
		s.discardUpload(ctx, newPath)
		return dto.SubmissionResponse{}, false, err
	}

	if newPath != "" && oldPath != "" && oldPath != newPath {
		if removeErr := s.files.Remove(ctx, oldPath); removeErr != nil {
			s.logger.Warn().Err(removeErr).Str("path", oldPath).Msg("failed to remove replaced upload")
		}
	}

	submission.Assignment = assignment
	s.recordSubmission(ctx, submission, isNew)
	return dto.ToSubmissionResponse(submission), isNew, nil
}

func (s *submissionService) Grade(ctx context.Context, teacherID, submissionID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !submission.Assignment.OwnedBy(teacherID) {
		return dto.SubmissionResponse{}, ErrNotOwner
	}

	grade := req.Grade
	submission.Grade = &grade
	if req.TeacherComment != "" {
		comment := req.TeacherComment
		submission.TeacherComment = &comment
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	entityID := submission.ID
	s.activity.Record(ctx, Actor{ID: teacherID, Role: models.RoleTeacher}, "submission_graded", "submission", &entityID, map[string]interface{}{
		"grade": grade,
	})
	s.events.Publish(ctx, "submission_graded", map[string]interface{}{
		"submission_id": submission.ID,
		"student_id":    submission.StudentID,
		"grade":         grade,
	})

	return dto.ToSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !s.canView(actor, submission) {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	return dto.ToSubmissionResponse(submission), nil
}

func (s *submissionService) ListForAssignment(ctx context.Context, teacherID, assignmentID uint) ([]dto.SubmissionResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if !assignment.OwnedBy(teacherID) {
		return nil, ErrNotOwner
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.ToSubmissionResponses(submissions), nil
}

func (s *submissionService) ListForStudent(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	return dto.ToSubmissionResponses(submissions), nil
}

func (s *submissionService) canView(actor Actor, submission models.Submission) bool {
	if actor.Role == models.RoleTeacher {
		return submission.Assignment.OwnedBy(actor.ID)
	}
	return submission.StudentID == actor.ID
}

// storeUpload validates the document type by sniffing its bytes, then hands
// it to the file store.
func (s *submissionService) storeUpload(ctx context.Context, name string, file io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	expected, ok := allowedUploadTypes[ext]
	if !ok {
		return "", ErrUnsupportedFileType
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	detected := mimetype.Detect(data)
	if !detected.Is(expected) && ext != ".txt" {
		return "", ErrUnsupportedFileType
	}

	return s.files.Save(ctx, name, bytes.NewReader(data))
}

func (s *submissionService) discardUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.files.Remove(ctx, path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to discard orphaned upload")
	}
}

func (s *submissionService) recordSubmission(ctx context.Context, submission models.Submission, isNew bool) {
	action := "submission_updated"
	if isNew {
		action = "submission_created"
	}

	entityID := submission.ID
	s.activity.Record(ctx, Actor{ID: submission.StudentID, Role: models.RoleStudent}, action, "submission", &entityID, map[string]interface{}{
		"assignment_id": submission.AssignmentID,
	})
	s.events.Publish(ctx, action, map[string]interface{}{
		"submission_id": submission.ID,
		"assignment_id": submission.AssignmentID,
		"student_id":    submission.StudentID,
	})
}

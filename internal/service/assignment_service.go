package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/pkg/storage"
)

var (
	// ErrAssignmentNotFound indicates the assignment does not exist or is not
	// visible to the caller.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrNotOwner indicates a teacher tried to manage an assignment they did
	// not author.
	ErrNotOwner = errors.New("assignment belongs to another teacher")
	// ErrUnknownAction indicates an unrecognized lifecycle action.
	ErrUnknownAction = errors.New("unknown lifecycle action")
)

// AssignmentService manages the authoring lifecycle of assignments and their
// visibility to students.
type AssignmentService interface {
	Create(ctx context.Context, teacherID uint, req dto.CreateAssignmentRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, teacherID, id uint, req dto.UpdateAssignmentRequest) (dto.AssignmentResponse, error)
	Publish(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error)
	Withdraw(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error)
	SaveDraft(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, teacherID, id uint) (dto.CascadeDeleteResult, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	submissions repository.SubmissionRepository
	files       storage.FileStore
	activity    ActivityService
	events      *EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService wires the assignment workflows.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	courses repository.CourseRepository,
	submissions repository.SubmissionRepository,
	files storage.FileStore,
	activity ActivityService,
	events *EventPublisher,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		courses:     courses,
		submissions: submissions,
		files:       files,
		activity:    activity,
		events:      events,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, teacherID uint, req dto.CreateAssignmentRequest) (dto.AssignmentResponse, error) {
	assignment := models.Assignment{
		Title:     req.Title,
		Content:   req.Content,
		TeacherID: teacherID,
		CourseID:  req.CourseID,
		DueDate:   req.DueDate,
		Questions: questionsFromInput(req.Questions),
	}

	switch req.Action {
	case dto.AssignmentActionDraft:
		assignment.SaveDraft()
	case "", dto.AssignmentActionPublish:
		assignment.Publish()
	default:
		return dto.AssignmentResponse{}, ErrUnknownAction
	}

	if err := s.ownedCourseScope(ctx, teacherID, req.CourseID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordLifecycle(ctx, teacherID, assignment, "assignment_created")
	return dto.ToAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, teacherID, id uint, req dto.UpdateAssignmentRequest) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.ownedCourseScope(ctx, teacherID, req.CourseID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment.Title = req.Title
	assignment.Content = req.Content
	assignment.CourseID = req.CourseID
	assignment.DueDate = req.DueDate

	switch req.Action {
	case "":
	case dto.AssignmentActionDraft:
		assignment.SaveDraft()
	case dto.AssignmentActionPublish:
		assignment.Publish()
	case dto.AssignmentActionWithdraw:
		assignment.Withdraw(s.now())
	default:
		return dto.AssignmentResponse{}, ErrUnknownAction
	}

	if req.Questions != nil {
		if err := s.assignments.ReplaceQuestions(ctx, assignment.ID, questionsFromInput(req.Questions)); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	assignment.Questions = nil
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	updated, err := s.assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordLifecycle(ctx, teacherID, updated, "assignment_updated")
	return dto.ToAssignmentResponse(updated), nil
}

func (s *assignmentService) Publish(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error) {
	return s.transition(ctx, teacherID, id, "assignment_published", func(assignment *models.Assignment) {
		assignment.Publish()
	})
}

func (s *assignmentService) Withdraw(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error) {
	return s.transition(ctx, teacherID, id, "assignment_withdrawn", func(assignment *models.Assignment) {
		assignment.Withdraw(s.now())
	})
}

func (s *assignmentService) SaveDraft(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error) {
	return s.transition(ctx, teacherID, id, "assignment_drafted", func(assignment *models.Assignment) {
		assignment.SaveDraft()
	})
}

func (s *assignmentService) transition(ctx context.Context, teacherID, id uint, action string, apply func(*models.Assignment)) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	apply(&assignment)
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordLifecycle(ctx, teacherID, assignment, action)
	return dto.ToAssignmentResponse(assignment), nil
}

// Delete removes the assignment and everything hanging off it. Database rows
// go atomically; stored uploads are released afterwards and a failed removal
// is reported, not fatal.
func (s *assignmentService) Delete(ctx context.Context, teacherID, id uint) (dto.CascadeDeleteResult, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, id)
	if err != nil {
		return dto.CascadeDeleteResult{}, err
	}

	paths, err := s.assignments.DeleteCascade(ctx, assignment.ID)
	if err != nil {
		return dto.CascadeDeleteResult{}, err
	}

	result := removeFiles(ctx, s.files, paths, s.logger)

	s.recordLifecycle(ctx, teacherID, assignment, "assignment_deleted")
	return result, nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if actor.Role == models.RoleTeacher {
		if !assignment.OwnedBy(actor.ID) {
			return dto.AssignmentResponse{}, ErrNotOwner
		}
		return dto.ToAssignmentResponse(assignment), nil
	}

	visible, err := s.visibleToStudent(ctx, assignment, actor.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if !visible {
		// Students cannot tell a hidden assignment from a missing one.
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	return dto.ToAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListForTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.ToAssignmentResponses(assignments), nil
}

// ListForStudent returns only published assignments the student can see,
// each flagged with whether they have already submitted.
func (s *assignmentService) ListForStudent(ctx context.Context, studentID uint) ([]dto.AssignmentResponse, error) {
	courseIDs, err := s.courses.ListCourseIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.ListVisibleToStudent(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	submitted := make(map[uint]bool, len(submissions))
	for _, submission := range submissions {
		submitted[submission.AssignmentID] = true
	}

	responses := dto.ToAssignmentResponses(assignments)
	for i := range responses {
		flag := submitted[responses[i].ID]
		responses[i].Submitted = &flag
	}

	return responses, nil
}

func (s *assignmentService) ownedAssignment(ctx context.Context, teacherID, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !assignment.OwnedBy(teacherID) {
		return models.Assignment{}, ErrNotOwner
	}

	return assignment, nil
}

// ownedCourseScope rejects scoping an assignment to a course the teacher
// does not own. Creation and update enforce the same gate.
func (s *assignmentService) ownedCourseScope(ctx context.Context, teacherID uint, courseID *uint) error {
	if courseID == nil {
		return nil
	}

	course, err := s.courses.GetByID(ctx, *courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}
	if course.TeacherID != teacherID {
		return ErrNotCourseOwner
	}
	return nil
}

func (s *assignmentService) visibleToStudent(ctx context.Context, assignment models.Assignment, studentID uint) (bool, error) {
	if assignment.Status != models.AssignmentStatusPublished {
		return false, nil
	}
	if assignment.CourseID == nil {
		return true, nil
	}
	return s.courses.IsEnrolled(ctx, *assignment.CourseID, studentID)
}

func (s *assignmentService) recordLifecycle(ctx context.Context, teacherID uint, assignment models.Assignment, action string) {
	entityID := assignment.ID
	actor := Actor{ID: teacherID, Role: models.RoleTeacher}
	s.activity.Record(ctx, actor, action, "assignment", &entityID, map[string]interface{}{
		"title":  assignment.Title,
		"status": string(assignment.Status),
	})
	s.events.Publish(ctx, action, map[string]interface{}{
		"assignment_id": assignment.ID,
		"teacher_id":    teacherID,
		"title":         assignment.Title,
		"status":        string(assignment.Status),
	})
}

func questionsFromInput(inputs []dto.QuestionInput) []models.Question {
	questions := make([]models.Question, 0, len(inputs))
	for _, input := range inputs {
		questions = append(questions, models.Question{
			Prompt:         input.Prompt,
			KnowledgePoint: input.KnowledgePoint,
		})
	}
	return questions
}

// removeFiles releases stored uploads after a cascade delete. Failures are
// collected for the response and logged, never raised.
func removeFiles(ctx context.Context, files storage.FileStore, paths []string, logger zerolog.Logger) dto.CascadeDeleteResult {
	result := dto.CascadeDeleteResult{}
	for _, path := range paths {
		if err := files.Remove(ctx, path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to remove stored file")
			result.FileErrors = append(result.FileErrors, path)
			continue
		}
		result.FilesRemoved++
	}
	return result
}

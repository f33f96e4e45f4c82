package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
)

type assignmentFixture struct {
	db      *gorm.DB
	store   *fakeStore
	service AssignmentService
	teacher models.User
	student models.User
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()

	db := newTestDB(t)
	store := newFakeStore()

	svc := NewAssignmentService(
		repository.NewAssignmentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewSubmissionRepository(db),
		store,
		newTestActivity(t, db),
		nil,
		zerolog.Nop(),
	)

	return &assignmentFixture{
		db:      db,
		store:   store,
		service: svc,
		teacher: seedTeacher(t, db),
		student: seedStudent(t, db, "student1"),
	}
}

func TestCreateDefaultsToPublished(t *testing.T) {
	fx := newAssignmentFixture(t)

	created, err := fx.service.Create(context.Background(), fx.teacher.ID, dto.CreateAssignmentRequest{
		Title:   "Sorting",
		Content: "Implement quicksort.",
		Questions: []dto.QuestionInput{
			{Prompt: "Why pick a random pivot?", KnowledgePoint: "quicksort"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AssignmentStatusPublished), created.Status)
	require.Nil(t, created.WithdrawnAt)
	require.Len(t, created.Questions, 1)
}

func TestLifecycleTransitionsKeepWithdrawnAtConsistent(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title:   "Sorting",
		Content: "Implement quicksort.",
		Action:  dto.AssignmentActionDraft,
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AssignmentStatusDraft), created.Status)

	published, err := fx.service.Publish(ctx, fx.teacher.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, string(models.AssignmentStatusPublished), published.Status)
	require.Nil(t, published.WithdrawnAt)

	withdrawn, err := fx.service.Withdraw(ctx, fx.teacher.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, string(models.AssignmentStatusWithdrawn), withdrawn.Status)
	require.NotNil(t, withdrawn.WithdrawnAt)

	republished, err := fx.service.Publish(ctx, fx.teacher.ID, created.ID)
	require.NoError(t, err)
	require.Nil(t, republished.WithdrawnAt)
}

func TestAssignmentOwnerGating(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title:   "Sorting",
		Content: "Implement quicksort.",
	})
	require.NoError(t, err)

	other := models.User{Username: "teacher2", Name: "Teacher Two", Role: models.RoleTeacher}
	require.NoError(t, fx.db.Create(&other).Error)

	_, err = fx.service.Withdraw(ctx, other.ID, created.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = fx.service.Delete(ctx, other.ID, created.ID)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestCourseScopeRequiresOwnershipOnCreateAndUpdate(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	other := models.User{Username: "teacher2", Name: "Teacher Two", Role: models.RoleTeacher}
	require.NoError(t, fx.db.Create(&other).Error)
	foreign := models.Course{Name: "Not mine", InviteCode: "QQQ234", TeacherID: other.ID}
	require.NoError(t, fx.db.Create(&foreign).Error)

	_, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "Scoped", Content: "c", CourseID: &foreign.ID,
	})
	require.ErrorIs(t, err, ErrNotCourseOwner)

	created, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "Unscoped", Content: "c",
	})
	require.NoError(t, err)

	// Editing must not open the back door the create gate closes.
	_, err = fx.service.Update(ctx, fx.teacher.ID, created.ID, dto.UpdateAssignmentRequest{
		Title: "Unscoped", Content: "c", CourseID: &foreign.ID,
	})
	require.ErrorIs(t, err, ErrNotCourseOwner)

	var stored models.Assignment
	require.NoError(t, fx.db.First(&stored, created.ID).Error)
	require.Nil(t, stored.CourseID)
}

func TestStudentVisibility(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	course := models.Course{Name: "Algorithms", InviteCode: "XYZ234", TeacherID: fx.teacher.ID}
	require.NoError(t, fx.db.Create(&course).Error)

	open, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "Open to all", Content: "c",
	})
	require.NoError(t, err)

	scoped, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "Course only", Content: "c", CourseID: &course.ID,
	})
	require.NoError(t, err)

	_, err = fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "Hidden draft", Content: "c", Action: dto.AssignmentActionDraft,
	})
	require.NoError(t, err)

	listed, err := fx.service.ListForStudent(ctx, fx.student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, open.ID, listed[0].ID)

	_, err = fx.service.Get(ctx, studentActor(fx.student), scoped.ID)
	require.ErrorIs(t, err, ErrAssignmentNotFound)

	require.NoError(t, fx.db.Create(&models.Enrollment{CourseID: course.ID, StudentID: fx.student.ID}).Error)

	listed, err = fx.service.ListForStudent(ctx, fx.student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	got, err := fx.service.Get(ctx, studentActor(fx.student), scoped.ID)
	require.NoError(t, err)
	require.Equal(t, scoped.ID, got.ID)
}

func TestListForStudentFlagsSubmitted(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	first, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{Title: "A", Content: "c"})
	require.NoError(t, err)
	_, err = fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{Title: "B", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, fx.db.Create(&models.Submission{
		AssignmentID: first.ID,
		StudentID:    fx.student.ID,
		Content:      "done",
		SubmittedAt:  time.Now(),
	}).Error)

	listed, err := fx.service.ListForStudent(ctx, fx.student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	byID := map[uint]dto.AssignmentResponse{}
	for _, item := range listed {
		byID[item.ID] = item
	}
	require.NotNil(t, byID[first.ID].Submitted)
	require.True(t, *byID[first.ID].Submitted)
	for id, item := range byID {
		if id == first.ID {
			continue
		}
		require.NotNil(t, item.Submitted)
		require.False(t, *item.Submitted)
	}
}

func TestDeleteCascadeReleasesFiles(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, fx.teacher.ID, dto.CreateAssignmentRequest{
		Title: "A", Content: "c",
		Questions: []dto.QuestionInput{{Prompt: "q", KnowledgePoint: "k"}},
	})
	require.NoError(t, err)

	path, err := fx.store.Save(ctx, "answer.txt", strings.NewReader("data"))
	require.NoError(t, err)
	require.NoError(t, fx.db.Create(&models.Submission{
		AssignmentID: created.ID,
		StudentID:    fx.student.ID,
		FilePath:     path,
		FileName:     "answer.txt",
		SubmittedAt:  time.Now(),
	}).Error)

	result, err := fx.service.Delete(ctx, fx.teacher.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesRemoved)
	require.Empty(t, result.FileErrors)
	require.False(t, fx.store.Exists(ctx, path))

	var counts struct{ Assignments, Questions, Submissions int64 }
	require.NoError(t, fx.db.Model(&models.Assignment{}).Count(&counts.Assignments).Error)
	require.NoError(t, fx.db.Model(&models.Question{}).Count(&counts.Questions).Error)
	require.NoError(t, fx.db.Model(&models.Submission{}).Count(&counts.Submissions).Error)
	require.Zero(t, counts.Assignments)
	require.Zero(t, counts.Questions)
	require.Zero(t, counts.Submissions)
}

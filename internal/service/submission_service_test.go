package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
)

type submissionFixture struct {
	db       *gorm.DB
	store    *fakeStore
	service  SubmissionService
	teacher  models.User
	student  models.User
	assigned models.Assignment
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	db := newTestDB(t)
	store := newFakeStore()
	teacher := seedTeacher(t, db)
	student := seedStudent(t, db, "student1")

	assignment := models.Assignment{
		Title:     "Recursion drills",
		Content:   "Implement factorial recursively.",
		TeacherID: teacher.ID,
	}
	assignment.Publish()
	require.NoError(t, db.Create(&assignment).Error)

	svc := NewSubmissionService(
		repository.NewSubmissionRepository(db),
		repository.NewAssignmentRepository(db),
		repository.NewCourseRepository(db),
		store,
		newTestActivity(t, db),
		nil,
		zerolog.Nop(),
	)

	return &submissionFixture{
		db:       db,
		store:    store,
		service:  svc,
		teacher:  teacher,
		student:  student,
		assigned: assignment,
	}
}

func TestSubmitRejectedUnlessPublished(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	for _, transition := range []func(*models.Assignment){
		(*models.Assignment).SaveDraft,
		func(a *models.Assignment) { a.Withdraw(a.CreatedAt) },
	} {
		transition(&fx.assigned)
		require.NoError(t, fx.db.Save(&fx.assigned).Error)

		_, _, err := fx.service.Submit(ctx, dto.SubmitInput{
			AssignmentID: fx.assigned.ID,
			StudentID:    fx.student.ID,
			Content:      "my answer",
		})
		require.ErrorIs(t, err, ErrNotSubmittable)
	}

	fx.assigned.Publish()
	require.NoError(t, fx.db.Save(&fx.assigned).Error)

	_, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "my answer",
	})
	require.NoError(t, err)
}

func TestSubmitUpsertsSingleRow(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	first, created, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "draft answer",
	})
	require.NoError(t, err)
	require.True(t, created)

	// Simulate an earlier review so we can verify resubmission keeps it.
	narrative := "Overall a solid attempt. 82/100"
	score := 82.0
	require.NoError(t, fx.db.Model(&models.Submission{}).
		Where("id = ?", first.ID).
		Updates(map[string]interface{}{"evaluation_result": narrative, "ai_score": score}).Error)

	second, created, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "final answer",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, fx.db.Model(&models.Submission{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var stored models.Submission
	require.NoError(t, fx.db.First(&stored, first.ID).Error)
	require.Equal(t, "final answer", stored.Content)
	require.NotNil(t, stored.EvaluationResult)
	require.Equal(t, narrative, *stored.EvaluationResult)
}

func TestSubmitReplacesUploadedFile(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	first, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		FileName:     "answer.txt",
		File:         strings.NewReader("first version"),
	})
	require.NoError(t, err)
	require.True(t, first.HasFile)

	var stored models.Submission
	require.NoError(t, fx.db.First(&stored, first.ID).Error)
	firstPath := stored.FilePath
	require.True(t, fx.store.Exists(ctx, firstPath))

	_, _, err = fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		FileName:     "answer.txt",
		File:         strings.NewReader("second version"),
	})
	require.NoError(t, err)

	require.NoError(t, fx.db.First(&stored, first.ID).Error)
	require.NotEqual(t, firstPath, stored.FilePath)
	require.True(t, fx.store.Exists(ctx, stored.FilePath))
	require.False(t, fx.store.Exists(ctx, firstPath))
	require.Contains(t, fx.store.removed, firstPath)
}

func TestSubmitFailedFileStoreKeepsPriorState(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	first, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "first attempt",
		FileName:     "answer.txt",
		File:         strings.NewReader("first version"),
	})
	require.NoError(t, err)

	var stored models.Submission
	require.NoError(t, fx.db.First(&stored, first.ID).Error)
	firstPath := stored.FilePath

	fx.store.saveErr = errors.New("disk full")

	_, _, err = fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "second attempt",
		FileName:     "answer.txt",
		File:         strings.NewReader("second version"),
	})
	require.Error(t, err)

	// The row and the stored upload both keep their previous state.
	require.NoError(t, fx.db.First(&stored, first.ID).Error)
	require.Equal(t, "first attempt", stored.Content)
	require.Equal(t, firstPath, stored.FilePath)
	require.True(t, fx.store.Exists(ctx, firstPath))
	require.Empty(t, fx.store.removed)
}

func TestSubmitRejectsUnsupportedUpload(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, _, err := fx.service.Submit(context.Background(), dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		FileName:     "answer.exe",
		File:         strings.NewReader("MZ..."),
	})
	require.ErrorIs(t, err, ErrUnsupportedFileType)
	require.Empty(t, fx.store.files)
}

func TestSubmitRequiresSomething(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, _, err := fx.service.Submit(context.Background(), dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "   ",
	})
	require.ErrorIs(t, err, ErrEmptySubmission)
}

func TestSubmitCourseScopedRequiresEnrollment(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	course := models.Course{Name: "Algorithms", InviteCode: "ABC234", TeacherID: fx.teacher.ID}
	require.NoError(t, fx.db.Create(&course).Error)
	fx.assigned.CourseID = &course.ID
	require.NoError(t, fx.db.Save(&fx.assigned).Error)

	_, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "my answer",
	})
	require.ErrorIs(t, err, ErrNotEnrolled)

	require.NoError(t, fx.db.Create(&models.Enrollment{CourseID: course.ID, StudentID: fx.student.ID}).Error)

	_, _, err = fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "my answer",
	})
	require.NoError(t, err)
}

func TestGradeRequiresAssignmentOwnership(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	submitted, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "my answer",
	})
	require.NoError(t, err)

	other := models.User{Username: "teacher2", Name: "Teacher Two", Role: models.RoleTeacher}
	require.NoError(t, fx.db.Create(&other).Error)

	_, err = fx.service.Grade(ctx, other.ID, submitted.ID, dto.GradeSubmissionRequest{Grade: "A"})
	require.ErrorIs(t, err, ErrNotOwner)

	graded, err := fx.service.Grade(ctx, fx.teacher.ID, submitted.ID, dto.GradeSubmissionRequest{
		Grade:          "A",
		TeacherComment: "Well structured.",
	})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, "A", *graded.Grade)
	require.NotNil(t, graded.TeacherComment)
}

func TestStudentsOnlySeeOwnSubmissions(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	submitted, _, err := fx.service.Submit(ctx, dto.SubmitInput{
		AssignmentID: fx.assigned.ID,
		StudentID:    fx.student.ID,
		Content:      "my answer",
	})
	require.NoError(t, err)

	other := seedStudent(t, fx.db, "student2")
	_, err = fx.service.Get(ctx, studentActor(other), submitted.ID)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	got, err := fx.service.Get(ctx, studentActor(fx.student), submitted.ID)
	require.NoError(t, err)
	require.Equal(t, submitted.ID, got.ID)
}

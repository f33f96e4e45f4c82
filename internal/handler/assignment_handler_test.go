package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/config"
	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/handler"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
	"github.com/classhive/classhive-api/internal/router"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/pkg/storage"
)

type stubGrader struct{}

func (stubGrader) Evaluate(context.Context, string) string {
	return "Well reasoned answer. 85/100"
}

func (stubGrader) GeneratePlan(context.Context, string, string) string {
	return "1. Review recursion basics"
}

type testApp struct {
	app     *fiber.App
	db      *gorm.DB
	teacher models.User
	student models.User
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Course{}, &models.Enrollment{}, &models.CourseMaterial{},
		&models.Assignment{}, &models.Question{}, &models.Submission{}, &models.ActivityLog{},
	))

	teacher := models.User{Username: "teacher1", Name: "Teacher One", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&teacher).Error)
	student := models.User{Username: "student1", Name: "Student One", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	files, err := storage.NewLocal(t.TempDir(), logger)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, submissionRepo, files, activityService, nil, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, courseRepo, files, activityService, nil, logger)
	courseService := service.NewCourseService(courseRepo, files, activityService, nil, logger)
	reviewService := service.NewReviewService(submissionRepo, stubGrader{}, nil, 0, activityService, nil, logger)
	accountService := service.NewAccountService(userRepo, files, activityService, nil, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		HealthHandler:     handler.NewHealthHandler("test"),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, logger),
		CourseHandler:     handler.NewCourseHandler(courseService, validate, logger),
		ReviewHandler:     handler.NewReviewHandler(reviewService, logger),
		AccountHandler:    handler.NewAccountHandler(accountService, activityService, logger),
		// Test stand-in for the JWT middleware: identity comes from headers.
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err == nil {
					c.Locals("user_id", uint(id))
				}
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return &testApp{app: app, db: db, teacher: teacher, student: student}
}

func (ta *testApp) asTeacher(req *http.Request) *http.Request {
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(ta.teacher.ID), 10))
	req.Header.Set("X-Test-Role", models.RoleTeacher)
	return req
}

func (ta *testApp) asStudent(req *http.Request) *http.Request {
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(ta.student.ID), 10))
	req.Header.Set("X-Test-Role", models.RoleStudent)
	return req
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func TestAssignmentLifecycleOverHTTP(t *testing.T) {
	ta := setupApp(t)

	createReq := ta.asTeacher(jsonRequest(t, "POST", "/api/v1/assignments", dto.CreateAssignmentRequest{
		Title:   "Data Structures",
		Content: "Implement a binary heap.",
		Questions: []dto.QuestionInput{
			{Prompt: "Why is sift-down O(log n)?", KnowledgePoint: "heaps"},
		},
	}))
	resp, err := ta.app.Test(createReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool                   `json:"success"`
		Data    dto.AssignmentResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.NotZero(t, created.Data.ID)
	require.Equal(t, string(models.AssignmentStatusPublished), created.Data.Status)

	listReq := ta.asStudent(httptest.NewRequest("GET", "/api/v1/assignments", nil))
	resp, err = ta.app.Test(listReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.AssignmentResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)

	idPath := "/api/v1/assignments/" + strconv.FormatUint(uint64(created.Data.ID), 10)
	resp, err = ta.app.Test(ta.asTeacher(httptest.NewRequest("POST", idPath+"/withdraw", nil)))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Withdrawn assignments disappear from the student listing.
	resp, err = ta.app.Test(ta.asStudent(httptest.NewRequest("GET", "/api/v1/assignments", nil)))
	require.NoError(t, err)
	decodeResponse(t, resp, &listed)
	require.Empty(t, listed.Data)
}

func TestStudentsCannotAuthorAssignments(t *testing.T) {
	ta := setupApp(t)

	req := ta.asStudent(jsonRequest(t, "POST", "/api/v1/assignments", dto.CreateAssignmentRequest{
		Title:   "Nope",
		Content: "Students cannot do this.",
	}))
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	anonymous := jsonRequest(t, "POST", "/api/v1/assignments", dto.CreateAssignmentRequest{
		Title:   "Nope",
		Content: "Anonymous cannot either.",
	})
	resp, err = ta.app.Test(anonymous)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitAndReviewOverHTTP(t *testing.T) {
	ta := setupApp(t)

	createReq := ta.asTeacher(jsonRequest(t, "POST", "/api/v1/assignments", dto.CreateAssignmentRequest{
		Title:   "Essay",
		Content: "Write about gradient descent.",
	}))
	resp, err := ta.app.Test(createReq)
	require.NoError(t, err)
	var created struct {
		Data dto.AssignmentResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(created.Data.ID), 10)))
	require.NoError(t, writer.WriteField("content", "Gradient descent follows the negative gradient."))
	require.NoError(t, writer.Close())

	submitReq := ta.asStudent(httptest.NewRequest("POST", "/api/v1/submissions", body))
	submitReq.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err = ta.app.Test(submitReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var submitted struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &submitted)
	require.NotZero(t, submitted.Data.ID)

	// Resubmitting answers 200, not 201: the row was updated in place.
	body = &bytes.Buffer{}
	writer = multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(created.Data.ID), 10)))
	require.NoError(t, writer.WriteField("content", "Gradient descent follows the negative gradient, revised."))
	require.NoError(t, writer.Close())

	resubmitReq := ta.asStudent(httptest.NewRequest("POST", "/api/v1/submissions", body))
	resubmitReq.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err = ta.app.Test(resubmitReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var resubmitted struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &resubmitted)
	require.Equal(t, submitted.Data.ID, resubmitted.Data.ID)

	previewPath := "/api/v1/review/submissions/" + strconv.FormatUint(uint64(submitted.Data.ID), 10) + "/preview"
	resp, err = ta.app.Test(ta.asStudent(httptest.NewRequest("GET", previewPath, nil)))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var review struct {
		Data dto.ReviewResponse `json:"data"`
	}
	decodeResponse(t, resp, &review)
	require.Contains(t, review.Data.Evaluation, "85/100")
	require.NotNil(t, review.Data.AIScore)
	require.InDelta(t, 85, *review.Data.AIScore, 0.001)
	require.NotEmpty(t, review.Data.StudyPlan)

	gradePath := "/api/v1/submissions/" + strconv.FormatUint(uint64(submitted.Data.ID), 10) + "/grade"
	resp, err = ta.app.Test(ta.asTeacher(jsonRequest(t, "POST", gradePath, dto.GradeSubmissionRequest{Grade: "A"})))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCourseJoinFlowOverHTTP(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(ta.asTeacher(jsonRequest(t, "POST", "/api/v1/courses", dto.CreateCourseRequest{
		Name: "Machine Learning",
	})))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.Len(t, created.Data.InviteCode, 6)

	resp, err = ta.app.Test(ta.asStudent(jsonRequest(t, "POST", "/api/v1/courses/join", dto.JoinCourseRequest{
		InviteCode: created.Data.InviteCode,
	})))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = ta.app.Test(ta.asStudent(jsonRequest(t, "POST", "/api/v1/courses/join", dto.JoinCourseRequest{
		InviteCode: created.Data.InviteCode,
	})))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

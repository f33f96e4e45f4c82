package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/internal/utils"
)

// SubmissionHandler wires submission HTTP routes.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.listMine, middleware.AuthRoleStudent))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthRoleAny))
	router.Post("", middleware.WithAuth(h.submit, middleware.AuthRoleStudent))
	router.Post("/:id/grade", middleware.WithAuth(h.grade, middleware.AuthRoleTeacher))
	router.Get("/assignment/:assignmentID", middleware.WithAuth(h.listForAssignment, middleware.AuthRoleTeacher))
}

// submit accepts a multipart form: an assignment_id field, optional content
// text, and an optional file part.
func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assignmentID, err := parseFormUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	input := dto.SubmitInput{
		AssignmentID: assignmentID,
		StudentID:    userIDFromContext(c),
		Content:      c.FormValue("content"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "failed to read uploaded file")
		}
		defer file.Close()

		input.File = file
		input.FileName = fileHeader.Filename
		input.FileSize = fileHeader.Size
	}

	submission, created, err := h.service.Submit(c.UserContext(), input)
	if err != nil {
		return h.handleError(c, err)
	}

	if created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Grade(c.UserContext(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listMine(c *fiber.Ctx) error {
	submissions, err := h.service.ListForStudent(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) listForAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.ListForAssignment(c.UserContext(), userIDFromContext(c), assignmentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound), errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotSubmittable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotEnrolled), errors.Is(err, service.ErrNotOwner):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmptySubmission), errors.Is(err, service.ErrUnsupportedFileType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *SubmissionHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("submission request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

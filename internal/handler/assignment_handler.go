package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service   service.AssignmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, validator *validator.Validate, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.list, middleware.AuthRoleAny))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthRoleAny))
	router.Post("", middleware.WithAuth(h.create, middleware.AuthRoleTeacher))
	router.Put("/:id", middleware.WithAuth(h.update, middleware.AuthRoleTeacher))
	router.Post("/:id/publish", middleware.WithAuth(h.publish, middleware.AuthRoleTeacher))
	router.Post("/:id/withdraw", middleware.WithAuth(h.withdraw, middleware.AuthRoleTeacher))
	router.Post("/:id/draft", middleware.WithAuth(h.saveDraft, middleware.AuthRoleTeacher))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthRoleTeacher))
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	var (
		assignments []dto.AssignmentResponse
		err         error
	)
	if actor.Role == models.RoleTeacher {
		assignments, err = h.service.ListForTeacher(c.UserContext(), actor.ID)
	} else {
		assignments, err = h.service.ListForStudent(c.UserContext(), actor.ID)
	}
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UpdateAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Update(c.UserContext(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	return h.transition(c, h.service.Publish, "assignment published")
}

func (h *AssignmentHandler) withdraw(c *fiber.Ctx) error {
	return h.transition(c, h.service.Withdraw, "assignment withdrawn")
}

func (h *AssignmentHandler) saveDraft(c *fiber.Ctx) error {
	return h.transition(c, h.service.SaveDraft, "assignment saved as draft")
}

func (h *AssignmentHandler) transition(c *fiber.Ctx, apply func(ctx context.Context, teacherID, id uint) (dto.AssignmentResponse, error), message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := apply(c.UserContext(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Delete(c.UserContext(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", result)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound), errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUnknownAction):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *AssignmentHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("assignment request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

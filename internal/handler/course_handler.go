package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/dto"
	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/internal/utils"
)

// CourseHandler wires course, roster and material HTTP routes.
type CourseHandler struct {
	service   service.CourseService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service service.CourseService, validator *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches course endpoints to the router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.list, middleware.AuthRoleAny))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthRoleAny))
	router.Post("", middleware.WithAuth(h.create, middleware.AuthRoleTeacher))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthRoleTeacher))
	router.Post("/join", middleware.WithAuth(h.join, middleware.AuthRoleStudent))
	router.Post("/:id/leave", middleware.WithAuth(h.leave, middleware.AuthRoleStudent))
	router.Get("/:id/roster", middleware.WithAuth(h.roster, middleware.AuthRoleTeacher))
	router.Get("/:id/materials", middleware.WithAuth(h.listMaterials, middleware.AuthRoleAny))
	router.Post("/:id/materials", middleware.WithAuth(h.uploadMaterial, middleware.AuthRoleTeacher))
	router.Patch("/materials/:materialID", middleware.WithAuth(h.setMaterialPublished, middleware.AuthRoleTeacher))
	router.Delete("/materials/:materialID", middleware.WithAuth(h.deleteMaterial, middleware.AuthRoleTeacher))
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	var (
		courses []dto.CourseResponse
		err     error
	)
	if actor.Role == models.RoleTeacher {
		courses, err = h.service.ListForTeacher(c.UserContext(), actor.ID)
	} else {
		courses, err = h.service.ListForStudent(c.UserContext(), actor.ID)
	}
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateCourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Delete(c.UserContext(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course deleted", result)
}

func (h *CourseHandler) join(c *fiber.Ctx) error {
	var payload dto.JoinCourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.Join(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course joined", course)
}

func (h *CourseHandler) leave(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Leave(c.UserContext(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course left", nil)
}

func (h *CourseHandler) roster(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.Roster(c.UserContext(), userIDFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *CourseHandler) listMaterials(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	materials, err := h.service.ListMaterials(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "materials retrieved", materials)
}

func (h *CourseHandler) uploadMaterial(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "material file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read uploaded file")
	}
	defer file.Close()

	published, _ := strconv.ParseBool(c.FormValue("published"))
	input := dto.UploadMaterialInput{
		CourseID:    id,
		TeacherID:   userIDFromContext(c),
		Title:       c.FormValue("title"),
		Kind:        c.FormValue("kind"),
		Description: c.FormValue("description"),
		FileName:    fileHeader.Filename,
		FileSize:    fileHeader.Size,
		File:        file,
		Published:   published,
	}
	if input.Title == "" {
		input.Title = fileHeader.Filename
	}
	if input.Kind == "" {
		input.Kind = "document"
	}

	material, err := h.service.UploadMaterial(c.UserContext(), input)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "material uploaded", material)
}

func (h *CourseHandler) setMaterialPublished(c *fiber.Ctx) error {
	materialID, err := parseUintParam(c, "materialID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload struct {
		Published bool `json:"published"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	material, err := h.service.SetMaterialPublished(c.UserContext(), userIDFromContext(c), materialID, payload.Published)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "material updated", material)
}

func (h *CourseHandler) deleteMaterial(c *fiber.Ctx) error {
	materialID, err := parseUintParam(c, "materialID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteMaterial(c.UserContext(), userIDFromContext(c), materialID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "material deleted", nil)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound), errors.Is(err, service.ErrMaterialNotFound),
		errors.Is(err, service.ErrInviteCodeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled), errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *CourseHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("course request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/internal/utils"
)

// ReviewHandler exposes the AI review pipeline over HTTP.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review endpoints to the router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/submissions/:id/preview", middleware.WithAuth(h.preview, middleware.AuthRoleAny))
}

func (h *ReviewHandler) preview(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	review, err := h.service.Preview(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrContentUnavailable):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("review request failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccess(c, "review completed", review)
}

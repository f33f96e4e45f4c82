package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classhive/classhive-api/internal/middleware"
	"github.com/classhive/classhive-api/internal/service"
	"github.com/classhive/classhive-api/internal/utils"
)

// AccountHandler exposes account self-service endpoints.
type AccountHandler struct {
	accounts service.AccountService
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(accounts service.AccountService, activity service.ActivityService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		activity: activity,
		logger:   logger.With().Str("component", "account_handler").Logger(),
	}
}

// Register attaches account endpoints to the router group.
func (h *AccountHandler) Register(router fiber.Router) {
	router.Delete("/me", middleware.WithAuth(h.deleteAccount, middleware.AuthRoleAny))
	router.Get("/activity", middleware.WithAuth(h.recentActivity, middleware.AuthRoleTeacher))
}

func (h *AccountHandler) deleteAccount(c *fiber.Ctx) error {
	result, err := h.accounts.DeleteAccount(c.UserContext(), actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAccountForbidden):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("account deletion failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccess(c, "account deleted", result)
}

func (h *AccountHandler) recentActivity(c *fiber.Ctx) error {
	limit, _ := strconvAtoiQuery(c, "limit")
	entries, err := h.activity.Recent(c.UserContext(), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("activity listing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}

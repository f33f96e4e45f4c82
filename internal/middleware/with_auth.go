package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/classhive/classhive-api/internal/utils"
)

// Roles accepted by the WithAuth guard.
const (
	AuthRoleAny     = "any"
	AuthRoleTeacher = "teacher"
	AuthRoleStudent = "student"
)

// WithAuth wraps a handler with an authentication and role guard. An
// authenticated user is always required; a role other than any additionally
// pins the caller's role.
func WithAuth(handler fiber.Handler, role string) fiber.Handler {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole, _ := c.Locals("user_role").(string)
		if currentRole != role {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return handler(c)
	}
}

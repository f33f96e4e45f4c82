package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classhive/classhive-api/internal/config"
	"github.com/classhive/classhive-api/internal/handler"
	"github.com/classhive/classhive-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HealthHandler     *handler.HealthHandler
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	CourseHandler     *handler.CourseHandler
	ReviewHandler     *handler.ReviewHandler
	AccountHandler    *handler.AccountHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(api)
	}
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses", jwtMiddleware))
	}
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(api.Group("/review", jwtMiddleware))
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.Register(api.Group("/account", jwtMiddleware))
	}
}

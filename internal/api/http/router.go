package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notjira/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Board       *handlers.BoardHandler
	Profile     *handlers.ProfileHandler
	RequireUser fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.RequireUser, cfg.Auth.Logout)

	board := app.Group("/board", cfg.RequireUser)
	board.Get("/tickets", cfg.Board.ListTickets)
	board.Get("/columns", cfg.Board.Columns)
	board.Post("/tickets", cfg.Board.CreateTicket)
	board.Post("/tickets/:id/move", cfg.Board.MoveTicket)
	board.Delete("/tickets/:id", cfg.Board.DeleteTicket)

	app.Get("/users/:uid", cfg.RequireUser, cfg.Profile.ViewUser)
	profile := app.Group("/profile", cfg.RequireUser)
	profile.Put("/", cfg.Profile.Update)
	profile.Get("/stats", cfg.Profile.Stats)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/auth"
	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	Runs      *relay.Manager
	NewRun    RunFactory
	Roster    ports.RosterSource
	JWTSecret string
	AppName   string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName, "running": deps.Runs.Running()})
	})

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin, entity.RoleUser))

	runHandler := NewRunHandler(deps.Runs, deps.NewRun, deps.Log)
	protected.Post("/runs", runHandler.Start)
	protected.Post("/runs/stop", runHandler.Stop)
	protected.Get("/runs/current", runHandler.Current)

	clientHandler := NewClientHandler(deps.Roster)
	protected.Get("/clients", clientHandler.List)
}

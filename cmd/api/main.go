package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/portal-nfse/internal/application/auth"
	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/bootstrap"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/userfile"
	httpRouter "github.com/jhoicas/portal-nfse/internal/interfaces/http"
	"github.com/jhoicas/portal-nfse/pkg/config"
	"github.com/jhoicas/portal-nfse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido para la API")
	}

	rt := bootstrap.New(context.Background(), cfg, log)
	defer rt.Close()

	users, err := userfile.New(cfg.Portal.UsersPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Portal.UsersPath).Msg("archivo de operadores")
	}
	authUC := auth.NewAuthUseCase(users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	runs := relay.NewManager(log.Component("runs"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Portal NFS-e API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Runs:      runs,
		NewRun:    rt.Runner.Func,
		Roster:    rt.Roster,
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
		Log:       log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// La ejecución en curso termina el cliente actual y escribe el libro parcial.
	if err := runs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ejecución no terminó a tiempo")
	}

	log.Info().Msg("aplicación detenida")
}

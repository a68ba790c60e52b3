package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/dto"
	"github.com/jhoicas/portal-nfse/internal/application/relay"
	"github.com/jhoicas/portal-nfse/internal/application/scraper"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// RunFactory arma el cuerpo de una ejecución para el pedido dado.
type RunFactory func(req scraper.RunRequest) relay.RunFunc

// RunHandler inicia, detiene y consulta la ejecución activa.
type RunHandler struct {
	runs   *relay.Manager
	newRun RunFactory
	now    func() time.Time
	log    zerolog.Logger
}

// NewRunHandler construye el handler de ejecuciones.
func NewRunHandler(runs *relay.Manager, newRun RunFactory, log zerolog.Logger) *RunHandler {
	return &RunHandler{runs: runs, newRun: newRun, now: time.Now, log: log}
}

// Start godoc
func (h *RunHandler) Start(c *fiber.Ctx) error {
	var in dto.StartRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}

	comp := entity.PreviousCompetency(h.now())
	if s := strings.TrimSpace(in.Competencia); s != "" {
		parsed, err := entity.ParseCompetencyFlag(s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		comp = parsed
	}

	var names []string
	for _, n := range in.Clientes {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	runID, err := h.runs.Start(comp.Label(), h.newRun(scraper.RunRequest{Competency: comp, Clients: names}))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RUN_ACTIVE", Message: "ya hay una ejecución en curso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	h.log.Info().Str("run_id", runID).Str("operador", GetUsername(c)).Str("competencia", comp.Label()).Msg("ejecución solicitada")
	return c.Status(fiber.StatusAccepted).JSON(dto.StartRunResponse{RunID: runID, Competencia: comp.Label()})
}

// Stop godoc
func (h *RunHandler) Stop(c *fiber.Ctx) error {
	if !h.runs.Stop() {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_ACTIVE_RUN", Message: "no hay ejecución en curso"})
	}
	h.log.Info().Str("operador", GetUsername(c)).Msg("detención solicitada")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"stopping": true})
}

// Current godoc
func (h *RunHandler) Current(c *fiber.Ctx) error {
	return c.JSON(h.runs.Current())
}

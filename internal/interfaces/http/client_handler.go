package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/portal-nfse/internal/application/dto"
	"github.com/jhoicas/portal-nfse/internal/application/ports"
)

// ClientHandler lista el roster para elegir clientes antes de iniciar.
type ClientHandler struct {
	roster ports.RosterSource
}

// NewClientHandler construye el handler de clientes.
func NewClientHandler(roster ports.RosterSource) *ClientHandler {
	return &ClientHandler{roster: roster}
}

// List godoc
func (h *ClientHandler) List(c *fiber.Ctx) error {
	rows, err := h.roster.Load(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "ROSTER", Message: err.Error()})
	}
	out := make([]dto.ClientResponse, 0, len(rows))
	for _, r := range rows {
		if !r.Active {
			continue
		}
		out = append(out, dto.ClientResponse{
			Empresa:    r.Company,
			CNPJ:       r.TaxID,
			TipoAcesso: r.AccessRaw,
			Prefeitura: r.Municipality,
		})
	}
	return c.JSON(out)
}

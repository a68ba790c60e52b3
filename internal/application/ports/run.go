package ports

import (
	"context"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// RosterSource fuente externa de la planilla de clientes.
type RosterSource interface {
	Load(ctx context.Context) ([]entity.ClientAccount, error)
}

// LedgerWriter persiste el libro una sola vez al final de la ejecución.
// Devuelve la ruta del archivo escrito.
type LedgerWriter interface {
	WriteLedger(ctx context.Context, dir string, run *entity.LedgerRun) (string, error)
}

// LedgerMirror copia opcional del libro (p. ej. PostgreSQL).
type LedgerMirror interface {
	SaveRun(ctx context.Context, run *entity.LedgerRun, statuses []entity.StatusRow) error
}

// SummaryWriter resumen legible de la ejecución (PDF).
type SummaryWriter interface {
	WriteSummary(ctx context.Context, dir string, run *entity.LedgerRun, statuses []entity.StatusRow) (string, error)
}

// EventSink canal de progreso hacia la capa de presentación. Emit nunca bloquea.
type EventSink interface {
	Emit(ev entity.ProgressEvent)
}

// CancelSignal bandera de cancelación cooperativa, consultada entre clientes.
type CancelSignal interface {
	Cancelled() bool
}

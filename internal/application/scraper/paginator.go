package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// DefaultMaxPages tope de páginas por cliente.
const DefaultMaxPages = 500

// LogFunc línea legible para el operador (se reenvía como evento log).
type LogFunc func(format string, args ...any)

// PageStats resultado del recorrido de un cliente.
type PageStats struct {
	Pages     int
	Matched   int
	Retrieved int
	Failed    int
}

// Paginator recorre la lista de notas emitidas página por página.
// El fin de la lista se detecta por la huella de la primera fila: si "Próxima"
// no cambió el contenido, la página es la última.
type Paginator struct {
	Retriever *Retriever
	Timings   Timings
	MaxPages  int
	log       zerolog.Logger
}

// NewPaginator construye el paginador.
func NewPaginator(r *Retriever, t Timings, log zerolog.Logger) *Paginator {
	return &Paginator{Retriever: r, Timings: t, MaxPages: DefaultMaxPages, log: log}
}

// Traverse procesa las filas de la competencia target en todas las páginas.
// onRecord recibe cada registro completo; los errores de fila se registran y se
// saltan. Solo devuelve error si la lista misma no se puede leer o ctx termina.
func (p *Paginator) Traverse(ctx context.Context, b ports.Browser, c entity.ClientAccount, target entity.Competency, outDir string, onRecord func(entity.ExtractedInvoice), logf LogFunc) (PageStats, error) {
	var stats PageStats
	prev := ""
	for page := 1; p.MaxPages <= 0 || page <= p.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rows, err := readRows(b)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			logf("[INFO] Página %d sem notas.", page)
			break
		}
		fp := FirstRowFingerprint(rows)
		if prev != "" && fp == prev {
			p.log.Debug().Int("pagina", page).Msg("primera fila repetida, fin de la lista")
			break
		}
		prev = fp
		stats.Pages++
		logf("[INFO] Página %d: %d linha(s).", page, len(rows))

		if err := p.processPage(ctx, b, c, target, outDir, rows, &stats, onRecord, logf); err != nil {
			return stats, err
		}

		next, err := findNext(b)
		if err != nil {
			p.log.Debug().Int("pagina", page).Msg("sin control de página siguiente")
			break
		}
		if err := next.Click(); err != nil {
			if err := next.ScriptClick(); err != nil {
				p.log.Warn().Err(err).Int("pagina", page).Msg("no se pudo avanzar de página")
				break
			}
		}
		if err := sleep(ctx, p.Timings.NextPageSettle); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// processPage itera por índice; la lista se relee después de cada interacción
// porque abrir un detalle puede cambiar el DOM.
func (p *Paginator) processPage(ctx context.Context, b ports.Browser, c entity.ClientAccount, target entity.Competency, outDir string, rows []entity.InvoiceRow, stats *PageStats, onRecord func(entity.ExtractedInvoice), logf LogFunc) error {
	dirty := false
	for i := 0; ; i++ {
		if dirty {
			fresh, err := readRows(b)
			if err != nil {
				return err
			}
			rows = fresh
			dirty = false
		}
		if i >= len(rows) {
			return nil
		}
		row := rows[i]
		comp, ok := row.Competency()
		if !ok || !comp.Equal(target) {
			p.log.Debug().Int("fila", i).Str("competencia", row.CompetencyText).Msg("fila fuera de la competencia")
			continue
		}
		stats.Matched++

		dirty = true
		inv, err := p.Retriever.Retrieve(ctx, b, c, row, outDir)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.Failed++
			tag := "[ERRO]"
			if isNotFound(err) {
				tag = "[AVISO]"
			}
			logf("%s Linha %d (%s): %v", tag, i+1, row.IssueDateText, err)
			continue
		}
		stats.Retrieved++
		onRecord(inv)
		logf("[OK] NF %s - %s (%s)", inv.Number, inv.TakerName, inv.Situation)
	}
}

func readRows(b ports.Browser) ([]entity.InvoiceRow, error) {
	html, err := b.HTML()
	if err != nil {
		return nil, fmt.Errorf("leer la lista: %w", err)
	}
	return ParseListingRows(html)
}

func findNext(b ports.Browser) (ports.Element, error) {
	if el, err := b.Find(LocNextPage); err == nil {
		return el, nil
	}
	return b.Find(LocNextPageFallback)
}

package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// Retriever abre la vista de detalle de una fila, delega la descarga en
// DocumentProcessor y vuelve a la lista.
type Retriever struct {
	Documents *DocumentProcessor
	Timings   Timings
	log       zerolog.Logger
}

// NewRetriever construye el retriever.
func NewRetriever(docs *DocumentProcessor, t Timings, log zerolog.Logger) *Retriever {
	return &Retriever{Documents: docs, Timings: t, log: log}
}

// Retrieve procesa la fila row.Index de la página actual. Siempre intenta volver
// a la lista, también cuando el procesamiento falla.
func (r *Retriever) Retrieve(ctx context.Context, b ports.Browser, c entity.ClientAccount, row entity.InvoiceRow, outDir string) (entity.ExtractedInvoice, error) {
	elems, err := b.FindAll(LocListingRows)
	if err != nil {
		return entity.ExtractedInvoice{}, err
	}
	if row.Index >= len(elems) {
		return entity.ExtractedInvoice{}, fmt.Errorf("%w: fila %d fuera de rango (%d filas)", domain.ErrElementNotFound, row.Index, len(elems))
	}

	trigger, err := elems[row.Index].Find(LocRowTrigger)
	if err != nil {
		return entity.ExtractedInvoice{}, fmt.Errorf("menú de acciones: %w", err)
	}
	if err := trigger.ScriptClick(); err != nil {
		return entity.ExtractedInvoice{}, fmt.Errorf("abrir menú de acciones: %w", err)
	}
	if err := sleep(ctx, r.Timings.FlyoutSettle); err != nil {
		return entity.ExtractedInvoice{}, err
	}

	origin := b.CurrentWindow()
	before, err := b.WindowHandles()
	if err != nil {
		return entity.ExtractedInvoice{}, err
	}
	view, err := b.Find(LocViewAction)
	if err != nil {
		return entity.ExtractedInvoice{}, fmt.Errorf("acción Visualizar: %w", err)
	}
	if err := view.Click(); err != nil {
		if err := view.ScriptClick(); err != nil {
			return entity.ExtractedInvoice{}, fmt.Errorf("click en Visualizar: %w", err)
		}
	}
	if err := sleep(ctx, r.Timings.ViewSettle); err != nil {
		return entity.ExtractedInvoice{}, err
	}

	after, err := b.WindowHandles()
	if err != nil {
		return entity.ExtractedInvoice{}, err
	}
	if tab := newHandle(before, after); tab != "" {
		return r.inNewTab(ctx, b, c, row, outDir, origin, tab)
	}
	return r.inPlace(ctx, b, c, row, outDir)
}

func (r *Retriever) inNewTab(ctx context.Context, b ports.Browser, c entity.ClientAccount, row entity.InvoiceRow, outDir, origin, tab string) (entity.ExtractedInvoice, error) {
	if err := b.SwitchTo(tab); err != nil {
		return entity.ExtractedInvoice{}, err
	}
	r.log.Debug().Int("fila", row.Index).Msg("detalle en pestaña nueva")
	inv, perr := r.Documents.Process(ctx, b, c, row, outDir)

	_ = sleep(ctx, r.Timings.BeforeReturn)
	if err := b.CloseWindow(); err != nil {
		r.log.Warn().Err(err).Msg("no se pudo cerrar la pestaña de detalle")
	}
	if err := b.SwitchTo(origin); err != nil && perr == nil {
		perr = fmt.Errorf("volver a la lista: %w", err)
	}
	_ = sleep(ctx, r.Timings.ReturnSettle)
	return inv, perr
}

func (r *Retriever) inPlace(ctx context.Context, b ports.Browser, c entity.ClientAccount, row entity.InvoiceRow, outDir string) (entity.ExtractedInvoice, error) {
	r.log.Debug().Int("fila", row.Index).Msg("detalle en la misma pestaña")
	inv, perr := r.Documents.Process(ctx, b, c, row, outDir)

	_ = sleep(ctx, r.Timings.BeforeReturn)
	if err := b.Back(); err != nil && perr == nil {
		perr = fmt.Errorf("volver a la lista: %w", err)
	}
	_ = sleep(ctx, r.Timings.ReturnSettle)
	return inv, perr
}

// newHandle primer identificador de after que no estaba en before.
func newHandle(before, after []string) string {
	seen := make(map[string]struct{}, len(before))
	for _, h := range before {
		seen[h] = struct{}{}
	}
	for _, h := range after {
		if _, ok := seen[h]; !ok {
			return h
		}
	}
	return ""
}

// Package pdf genera el resumen legible de una ejecución del robot.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: título + competencia  │  id de ejecución + fecha   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: clientes OK/FALHA, notas, canceladas, valor      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Empresa | CNPJ | Acesso | Status | Detalhe          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: ruta del libro                                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorFailed  = &props.Color{Red: 170, Green: 30, Blue: 30}
	colorHeader  = &props.Color{Red: 225, Green: 232, Blue: 240}
)

// Totals agregados del resumen.
type Totals struct {
	Clients      int
	OK           int
	Failed       int
	Invoices     int
	Cancelled    int
	ServiceValue decimal.Decimal // solo notas no canceladas
}

// Summarize cuenta estados y notas de la ejecución.
func Summarize(run *entity.LedgerRun, statuses []entity.StatusRow) Totals {
	t := Totals{Clients: len(statuses)}
	for _, s := range statuses {
		switch s.Status {
		case entity.StatusOK:
			t.OK++
		case entity.StatusFailed:
			t.Failed++
		}
	}
	for _, inv := range run.Rows() {
		t.Invoices++
		if inv.IsCancelled() {
			t.Cancelled++
			continue
		}
		if inv.ServiceValue.Valid {
			t.ServiceValue = t.ServiceValue.Add(inv.ServiceValue.Decimal)
		}
	}
	return t
}

// SummaryName nombre del PDF de la competencia.
func SummaryName(c entity.Competency) string {
	return "RESUMO_NFSE_" + c.Folder() + ".pdf"
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoSummaryWriter implementa ports.SummaryWriter usando Maroto v2.
type MarotoSummaryWriter struct {
	now func() time.Time
}

var _ ports.SummaryWriter = (*MarotoSummaryWriter)(nil)

// NewMarotoSummaryWriter construye el generador.
func NewMarotoSummaryWriter() *MarotoSummaryWriter {
	return &MarotoSummaryWriter{now: time.Now}
}

// WriteSummary escribe RESUMO_NFSE_<YYYY-MM>.pdf en dir y devuelve su ruta.
func (g *MarotoSummaryWriter) WriteSummary(
	_ context.Context,
	dir string,
	run *entity.LedgerRun,
	statuses []entity.StatusRow,
) (string, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Resumo NFS-e "+run.Competency.Label(), true).
		Build()

	m := maroto.New(cfg)
	totals := Summarize(run, statuses)

	m.AddRows(headerRow(run, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(totalsRow(totals))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(statusRows(statuses)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("Planilha: "+entity.LedgerName(run.Competency)+".xlsx", props.Text{
			Size: 7, Color: colorGray, Top: 2,
		}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return "", fmt.Errorf("pdf: generar documento: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SummaryName(run.Competency))
	if err := os.WriteFile(path, doc.GetBytes(), 0o644); err != nil {
		return "", fmt.Errorf("pdf: guardar %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(run *entity.LedgerRun, now time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("RESUMO DA EXECUÇÃO NFS-e", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Competência: "+run.Competency.Label(), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Execução "+shortID(run.ID), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 1,
			}),
			text.New("Início: "+run.StartedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 7, Color: colorGray,
			}),
			text.New("Gerado: "+now.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

func totalsRow(t Totals) core.Row {
	cell := func(label, value string, c *props.Color) core.Col {
		return col.New(2).Add(
			text.New(label, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Center, Color: c, Top: 6}),
		)
	}
	failedColor := colorPrimary
	if t.Failed > 0 {
		failedColor = colorFailed
	}
	return row.New(16).Add(
		cell("Clientes", fmt.Sprint(t.Clients), colorPrimary),
		cell("OK", fmt.Sprint(t.OK), colorPrimary),
		cell("Falhas", fmt.Sprint(t.Failed), failedColor),
		cell("Notas", fmt.Sprint(t.Invoices), colorPrimary),
		cell("Canceladas", fmt.Sprint(t.Cancelled), colorPrimary),
		cell("Valor serviços", "R$ "+formatBRL(t.ServiceValue), colorPrimary),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Top: 2, Left: 1,
		}))
	}
	return row.New(8).Add(
		h("Empresa", 3),
		h("CNPJ", 2),
		h("Acesso", 2),
		h("Status", 1),
		h("Detalhe", 4),
	).WithStyle(&props.Cell{BackgroundColor: colorHeader})
}

func statusRows(statuses []entity.StatusRow) []core.Row {
	out := make([]core.Row, 0, len(statuses))
	for _, s := range statuses {
		c := func(v string, size int) core.Col {
			return col.New(size).Add(text.New(v, props.Text{Size: 8, Top: 1, Left: 1}))
		}
		status := col.New(1).Add(text.New(s.Status, props.Text{Size: 8, Top: 1, Left: 1, Style: fontstyle.Bold}))
		if s.Status == entity.StatusFailed {
			status = col.New(1).Add(text.New(s.Status, props.Text{Size: 8, Top: 1, Left: 1, Style: fontstyle.Bold, Color: colorFailed}))
		}
		out = append(out, row.New(7).Add(
			c(s.Company, 3),
			c(s.TaxID, 2),
			c(s.Access, 2),
			status,
			c(s.Detail, 4),
		))
	}
	return out
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatBRL 2 decimales con puntos de miles y coma decimal.
// Ej: 1500.5 → "1.500,50"
func formatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3+3)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf) + "," + frac
}

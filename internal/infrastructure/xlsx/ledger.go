package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

const ledgerSheet = "NFSE"

// LedgerWriter escribe el libro de la ejecución como .xlsx.
type LedgerWriter struct {
	log zerolog.Logger
}

var _ ports.LedgerWriter = (*LedgerWriter)(nil)

func NewLedgerWriter(log zerolog.Logger) *LedgerWriter {
	return &LedgerWriter{log: log.With().Str("component", "ledger").Logger()}
}

// LedgerPath ruta del libro dentro de dir.
func LedgerPath(dir string, c entity.Competency) string {
	return filepath.Join(dir, entity.LedgerName(c)+".xlsx")
}

// WriteLedger reemplaza el archivo de la competencia con las filas de run.
// Campos ausentes quedan como celda vacía.
func (w *LedgerWriter) WriteLedger(ctx context.Context, dir string, run *entity.LedgerRun) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return "", err
	}
	header := make([]any, len(entity.LedgerColumns))
	for i, c := range entity.LedgerColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return "", err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}
	if err := f.SetRowStyle(ledgerSheet, 1, 1, bold); err != nil {
		return "", err
	}

	for i, inv := range run.Rows() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		values := inv.LedgerValues()
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return "", fmt.Errorf("fila %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ledgerSheet, "A", "Y", 18); err != nil {
		return "", err
	}
	if err := f.SetPanes(ledgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return "", err
	}

	path := LedgerPath(dir, run.Competency)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("guardar %s: %w", filepath.Base(path), err)
	}
	w.log.Info().Str("path", path).Int("rows", run.Len()).Msg("libro escrito")
	return path, nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/portal-nfse/internal/application/ports"
	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// LedgerRepo inserta ejecuciones y filas del libro (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// ledgerRowColumns run_id, seq y las 25 columnas del libro en minúsculas.
func ledgerRowColumns() []string {
	cols := []string{"run_id", "seq"}
	for _, c := range entity.LedgerColumns {
		cols = append(cols, strings.ToLower(c))
	}
	return cols
}

// InsertRun cabecera de la ejecución. Un id repetido es domain.ErrConflict:
// el libro nunca se reabre.
func (r *LedgerRepo) InsertRun(ctx context.Context, run *entity.LedgerRun, finishedAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO nfse_runs (id, competency, started_at, finished_at, row_count, cancelled)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Competency.Folder(), run.StartedAt, finishedAt, run.Len(), run.CancelledCount(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ejecución %s ya registrada: %w", run.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertStatuses tabla de estado por cliente.
func (r *LedgerRepo) InsertStatuses(ctx context.Context, runID string, statuses []entity.StatusRow) error {
	for i, s := range statuses {
		_, err := r.q.Exec(ctx, `
			INSERT INTO nfse_run_clients (run_id, seq, empresa, cnpj, tipo_acesso, status, detalhe)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, i+1, s.Company, nullIfEmpty(s.TaxID), nullIfEmpty(s.Access), s.Status, nullIfEmpty(s.Detail),
		)
		if err != nil {
			return fmt.Errorf("insert status %s: %w", s.Company, err)
		}
	}
	return nil
}

// InsertRows copia las filas del libro con COPY.
func (r *LedgerRepo) InsertRows(ctx context.Context, run *entity.LedgerRun) (int64, error) {
	rows := run.Rows()
	src := make([][]any, len(rows))
	for i := range rows {
		src[i] = ledgerRowArgs(run.ID, i+1, rows[i])
	}
	n, err := r.q.CopyFrom(ctx, pgx.Identifier{"nfse_ledger_rows"}, ledgerRowColumns(), pgx.CopyFromRows(src))
	if err != nil {
		return 0, fmt.Errorf("copy ledger rows: %w", err)
	}
	return n, nil
}

// ledgerRowArgs textos vacíos como NULL; montos como NullDecimal (codec pgxdecimal).
func ledgerRowArgs(runID string, seq int, inv entity.ExtractedInvoice) []any {
	args := []any{
		runID, seq,
		nullIfEmpty(inv.Number),
		nullIfEmpty(inv.IssueDate),
		nullIfEmpty(inv.CompetencyDate),
		nullIfEmpty(inv.ProviderTaxID),
		nullIfEmpty(inv.ProviderName),
		nullIfEmpty(inv.TakerTaxID),
		nullIfEmpty(inv.TakerName),
		nullIfEmpty(inv.SimplesOptant),
		nullIfEmpty(inv.NationalTaxCode),
	}
	for _, m := range inv.MonetaryFields() {
		args = append(args, *m)
	}
	return append(args, nullIfEmpty(inv.Situation))
}

// LedgerMirror implementa ports.LedgerMirror: una transacción por ejecución.
type LedgerMirror struct {
	tx  *TxRunner
	now func() time.Time
	log zerolog.Logger
}

var _ ports.LedgerMirror = (*LedgerMirror)(nil)

func NewLedgerMirror(pool *pgxpool.Pool, log zerolog.Logger) *LedgerMirror {
	return &LedgerMirror{
		tx:  NewTxRunner(pool),
		now: time.Now,
		log: log.With().Str("component", "ledger_mirror").Logger(),
	}
}

// SaveRun cabecera, estados y filas juntos o nada.
func (m *LedgerMirror) SaveRun(ctx context.Context, run *entity.LedgerRun, statuses []entity.StatusRow) error {
	var copied int64
	err := m.tx.Run(ctx, func(repo *LedgerRepo) error {
		if err := repo.InsertRun(ctx, run, m.now()); err != nil {
			return err
		}
		if err := repo.InsertStatuses(ctx, run.ID, statuses); err != nil {
			return err
		}
		n, err := repo.InsertRows(ctx, run)
		copied = n
		return err
	})
	if err != nil {
		return err
	}
	m.log.Info().Str("run_id", run.ID).Int64("rows", copied).Msg("libro replicado en PostgreSQL")
	return nil
}

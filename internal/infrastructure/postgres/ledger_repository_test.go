package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/internal/domain"
	"github.com/jhoicas/portal-nfse/internal/domain/entity"
)

// fakeQuerier registra las sentencias; execErr se devuelve en cada Exec.
type fakeQuerier struct {
	execs   []string
	args    [][]any
	execErr error
	table   string
	columns []string
	copied  [][]any
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (f *fakeQuerier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	f.table = table.Sanitize()
	f.columns = columns
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, v)
	}
	return int64(len(f.copied)), src.Err()
}

func sampleRun() *entity.LedgerRun {
	run := entity.NewLedgerRun("0b6f3c1e-4a7d-4d2e-9a51-0e5c2f1b7a10", entity.Competency{Year: 2025, Month: 11}, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	run.Append(entity.ExtractedInvoice{
		Number:       "42",
		ServiceValue: decimal.NewNullDecimal(decimal.RequireFromString("1500.50")),
		Situation:    entity.SituationNormal,
	})
	c := entity.ExtractedInvoice{Number: "43"}
	c.ApplyCancellation()
	run.Append(c)
	return run
}

func TestLedgerRowArgs_AlineadoConColumnas(t *testing.T) {
	inv := sampleRun().Rows()[0]
	args := ledgerRowArgs("run", 1, inv)
	cols := ledgerRowColumns()

	require.Len(t, cols, 27)
	require.Len(t, args, len(cols))
	assert.Equal(t, "numero_nf", cols[2])
	assert.Equal(t, "valor_servico", cols[11])
	assert.Equal(t, "situacao", cols[26])

	assert.Equal(t, "42", *args[2].(*string))
	assert.Nil(t, args[3].(*string))
	assert.True(t, args[11].(decimal.NullDecimal).Decimal.Equal(decimal.RequireFromString("1500.5")))
	assert.False(t, args[12].(decimal.NullDecimal).Valid)
	assert.Equal(t, "NORMAL", *args[26].(*string))
}

func TestLedgerRepo_InsertaCabeceraEstadosYFilas(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewLedgerRepository(q)
	run := sampleRun()
	ctx := context.Background()

	require.NoError(t, repo.InsertRun(ctx, run, time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2025-11", q.args[0][1])
	assert.Equal(t, 2, q.args[0][4])
	assert.Equal(t, 1, q.args[0][5])

	statuses := []entity.StatusRow{
		{Company: "ALFA", TaxID: "11222333000144", Access: "LOGIN_SENHA", Status: entity.StatusOK, Detail: "2 nota(s)"},
		{Company: "BETA", Status: entity.StatusFailed},
	}
	require.NoError(t, repo.InsertStatuses(ctx, run.ID, statuses))
	require.Len(t, q.execs, 3)
	assert.Equal(t, 2, q.args[2][1])
	assert.Nil(t, q.args[2][3].(*string))

	n, err := repo.InsertRows(ctx, run)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, `"nfse_ledger_rows"`, q.table)
	assert.Equal(t, 2, q.copied[1][1])
	assert.Equal(t, "CANCELADA", *q.copied[1][26].(*string))
}

func TestLedgerRepo_EjecucionRepetidaEsConflicto(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505"}}
	err := NewLedgerRepository(q).InsertRun(context.Background(), sampleRun(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	q.execErr = errors.New("connection reset")
	err = NewLedgerRepository(q).InsertRun(context.Background(), sampleRun(), time.Now())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
}

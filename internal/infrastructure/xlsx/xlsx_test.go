package xlsx_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/portal-nfse/internal/domain/entity"
	"github.com/jhoicas/portal-nfse/internal/infrastructure/xlsx"
)

func writeSheet(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func header() []any {
	out := make([]any, len(xlsx.RosterColumns))
	for i, c := range xlsx.RosterColumns {
		out[i] = c
	}
	return out
}

// ──── Roster ────

func TestRoster_LeeFilasYNormalizaAtivo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientes.xlsx")
	writeSheet(t, path, [][]any{
		header(),
		{"Alfa Serviços", "11222333000144", "LOGIN_SENHA", "11222333000144", "s3nha", " s ", "Recife", "", ""},
		{"Beta Consultoria", "55666777000188", "CERTIFICADO", "", "", "N", "Olinda", "BETA CONSULTORIA LTDA", "cert_beta.png"},
		{"", "", "", "", "", "", "", "", ""},
	})

	got, err := xlsx.NewRoster(path, "", nil, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Alfa Serviços", got[0].Company)
	assert.True(t, got[0].Active)
	at, err := got[0].AccessType()
	require.NoError(t, err)
	assert.Equal(t, entity.AccessCredential, at)

	assert.False(t, got[1].Active)
	assert.Equal(t, "BETA CONSULTORIA LTDA", got[1].CertIdent)
	assert.Equal(t, "cert_beta.png", got[1].CertImage)
}

func TestRoster_ColumnaFaltante(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientes.xlsx")
	writeSheet(t, path, [][]any{{"EMPRESA", "CNPJ", "TIPO_ACESSO", "LOGIN", "SENHA", "ATIVO"}})

	_, err := xlsx.NewRoster(path, "", nil, zerolog.Nop()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PREFEITURA")
	assert.Contains(t, err.Error(), "IMG_CERT")
}

func TestRoster_ArchivoInexistenteCreaPlantilla(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planilhas", "clientes.xlsx")

	got, err := xlsx.NewRoster(path, "", nil, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, xlsx.RosterColumns, rows[0])
}

type stubCerts struct {
	path, password string
	err            error
}

func (s *stubCerts) CommonName(path, password string) (string, error) {
	s.path, s.password = path, password
	if s.err != nil {
		return "", s.err
	}
	return "GAMA LTDA:99888777000166", nil
}

func TestRoster_ResuelveIdentDesdePFX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clientes.xlsx")
	writeSheet(t, path, [][]any{
		header(),
		{"Gama", "99888777000166", "CERTIFICADO", "", "", "S", "Recife", "certs/gama.pfx", ""},
	})

	certs := &stubCerts{}
	got, err := xlsx.NewRoster(path, "segredo", certs, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GAMA LTDA:99888777000166", got[0].CertIdent)
	assert.Equal(t, filepath.Join(dir, "certs", "gama.pfx"), certs.path)
	assert.Equal(t, "segredo", certs.password)

	// sin contraseña configurada el valor queda tal cual
	got, err = xlsx.NewRoster(path, "", certs, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "certs/gama.pfx", got[0].CertIdent)

	// error al leer el .pfx: se conserva el valor original
	got, err = xlsx.NewRoster(path, "segredo", &stubCerts{err: errors.New("mac inválido")}, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "certs/gama.pfx", got[0].CertIdent)
}

// ──── Libro ────

func TestLedgerWriter_EscribeVeinticincoColumnas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2025-11")
	comp := entity.Competency{Year: 2025, Month: 11}
	run := entity.NewLedgerRun("run-1", comp, time.Now())
	run.Append(entity.ExtractedInvoice{
		Number:       "42",
		IssueDate:    "03/11/2025",
		ProviderName: "ALFA SERVICOS",
		ServiceValue: decimal.NewNullDecimal(decimal.RequireFromString("1500.50")),
		Situation:    entity.SituationNormal,
	})
	cancelled := entity.ExtractedInvoice{Number: "43"}
	cancelled.ApplyCancellation()
	run.Append(cancelled)

	path, err := xlsx.NewLedgerWriter(zerolog.Nop()).WriteLedger(context.Background(), dir, run)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "LOG_NFSE_2025-11.xlsx"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Len(t, rows[0], 25)
	assert.Equal(t, entity.LedgerColumns[:], rows[0])

	require.Len(t, rows[1], 25)
	assert.Equal(t, "42", rows[1][0])
	assert.Equal(t, "ALFA SERVICOS", rows[1][4])
	assert.Equal(t, "1500.5", rows[1][9])
	assert.Empty(t, rows[1][10])
	assert.Equal(t, "NORMAL", rows[1][24])

	assert.Equal(t, "43", rows[2][0])
	assert.Equal(t, "0", rows[2][9])
	assert.Equal(t, "CANCELADA", rows[2][24])
}

func TestLedgerWriter_LibroVacioSoloEncabezado(t *testing.T) {
	dir := t.TempDir()
	run := entity.NewLedgerRun("run-2", entity.Competency{Year: 2024, Month: 1}, time.Now())

	path, err := xlsx.NewLedgerWriter(zerolog.Nop()).WriteLedger(context.Background(), dir, run)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 25)
}

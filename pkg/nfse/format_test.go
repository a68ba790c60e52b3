package nfse_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/portal-nfse/pkg/nfse"
)

// ──────────────────────────────────────────────────────────────────────────────
// ParseMoney: los tres formatos aceptados y entradas vacías/ilegibles
// ──────────────────────────────────────────────────────────────────────────────

func TestParseMoney_Formatos(t *testing.T) {
	casos := []struct {
		entrada  string
		esperado string
	}{
		{"R$ 1.234,56", "1234.56"},
		{"281,31", "281.31"},
		{"281.31", "281.31"},
		{"1.234.567,89", "1234567.89"},
		{"  R$42 ", "42"},
		{"-15,50", "-15.5"},
	}
	for _, c := range casos {
		t.Run(c.entrada, func(t *testing.T) {
			got := nfse.ParseMoney(c.entrada)
			require.True(t, got.Valid, "debe reconocer %q", c.entrada)
			assert.True(t, decimal.RequireFromString(c.esperado).Equal(got.Decimal),
				"%q => %s, se esperaba %s", c.entrada, got.Decimal, c.esperado)
		})
	}
}

func TestParseMoney_Ausente(t *testing.T) {
	for _, in := range []string{"", "   ", "R$", "-", "abc", ".", "R$ -"} {
		assert.False(t, nfse.ParseMoney(in).Valid, "%q debe quedar ausente", in)
	}
}

// Idempotencia: reprocesar el texto de un valor ya parseado da el mismo monto.
func TestParseMoney_Idempotente(t *testing.T) {
	first := nfse.ParseMoney("R$ 1.234,56")
	require.True(t, first.Valid)
	second := nfse.ParseMoney(first.Decimal.StringFixed(2))
	require.True(t, second.Valid)
	assert.True(t, first.Decimal.Equal(second.Decimal))
}

// ──────────────────────────────────────────────────────────────────────────────
// Fechas, identificadores y nombres de archivo
// ──────────────────────────────────────────────────────────────────────────────

func TestFormatISODate(t *testing.T) {
	assert.Equal(t, "03/11/2025", nfse.FormatISODate("2025-11-03T10:00:00"))
	assert.Equal(t, "03/11/2025", nfse.FormatISODate("2025-11-03"))
	assert.Equal(t, "", nfse.FormatISODate("bad"))
	assert.Equal(t, "", nfse.FormatISODate(""))
}

func TestTaxIDForSheet(t *testing.T) {
	assert.Equal(t, "'01234567000189", nfse.TaxIDForSheet("01.234.567/0001-89"))
	assert.Equal(t, "", nfse.TaxIDForSheet("sem dígitos"))
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "123", nfse.InvoiceNumber("000123"))
	assert.Equal(t, "000", nfse.InvoiceNumber("000"))
	assert.Equal(t, "45", nfse.InvoiceNumber("NF-0045"))
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "ACME LTDA - NF 12", nfse.CleanFileName(`ACME/LTDA  -  NF 12`))
	assert.Equal(t, "A B C", nfse.CleanFileName(`A:B*C?`))
	assert.Equal(t, "X Y", nfse.CleanFileName("X\"<>|Y"))
}

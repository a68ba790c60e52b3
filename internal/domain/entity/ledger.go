package entity

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerColumns esquema fijo del libro LOG_NFSE_<YYYY-MM>.
var LedgerColumns = [25]string{
	"NUMERO_NF",
	"DATA_EMISSAO",
	"DATA_COMPETENCIA",
	"CNPJ_PRESTADOR",
	"RAZAO_PRESTADOR",
	"CNPJ_TOMADOR",
	"RAZAO_TOMADOR",
	"OPTANTE_SN",
	"CODIGO_TRIBUTACAO_NACIONAL",
	"VALOR_SERVICO",
	"IR",
	"ISS",
	"ISS_RETIDO",
	"CSLL",
	"DEDUCOES",
	"PIS",
	"COFINS",
	"INSS",
	"DESC_INCOND",
	"DESC_COND",
	"OUTRAS_RET",
	"ALIQUOTA",
	"BASE_CALCULO",
	"VALOR_LIQUIDO",
	"SITUACAO",
}

// LedgerName nombre base del archivo del libro.
func LedgerName(c Competency) string {
	return "LOG_NFSE_" + c.Folder()
}

// LedgerValues valores de la fila en el orden de LedgerColumns.
// Campo ausente => nil (celda vacía); montos como float64 de 2 decimales.
func (e ExtractedInvoice) LedgerValues() []any {
	str := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	money := func(d decimal.NullDecimal) any {
		if !d.Valid {
			return nil
		}
		return d.Decimal.Round(2).InexactFloat64()
	}
	return []any{
		str(e.Number),
		str(e.IssueDate),
		str(e.CompetencyDate),
		str(e.ProviderTaxID),
		str(e.ProviderName),
		str(e.TakerTaxID),
		str(e.TakerName),
		str(e.SimplesOptant),
		str(e.NationalTaxCode),
		money(e.ServiceValue),
		money(e.IR),
		money(e.ISS),
		money(e.ISSRetained),
		money(e.CSLL),
		money(e.Deductions),
		money(e.PIS),
		money(e.COFINS),
		money(e.INSS),
		money(e.UncondDiscount),
		money(e.CondDiscount),
		money(e.OtherRetentions),
		money(e.Aliquot),
		money(e.TaxBase),
		money(e.NetValue),
		str(e.Situation),
	}
}

// LedgerRun secuencia ordenada y solo de agregado de registros de una ejecución.
// La escribe únicamente el worker; afuera solo circulan copias.
type LedgerRun struct {
	ID         string
	Competency Competency
	StartedAt  time.Time

	mu   sync.Mutex
	rows []ExtractedInvoice
}

// NewLedgerRun crea un libro vacío para la ejecución.
func NewLedgerRun(id string, c Competency, startedAt time.Time) *LedgerRun {
	return &LedgerRun{ID: id, Competency: c, StartedAt: startedAt}
}

// Append agrega un registro completo.
func (l *LedgerRun) Append(inv ExtractedInvoice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, inv)
}

// Rows copia de los registros en orden de agregado.
func (l *LedgerRun) Rows() []ExtractedInvoice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ExtractedInvoice, len(l.rows))
	copy(out, l.rows)
	return out
}

// Len cantidad de registros.
func (l *LedgerRun) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// CancelledCount registros con situación CANCELADA.
func (l *LedgerRun) CancelledCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := range l.rows {
		if l.rows[i].IsCancelled() {
			n++
		}
	}
	return n
}

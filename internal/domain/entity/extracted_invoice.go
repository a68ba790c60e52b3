package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Situaciones de la nota en el libro.
const (
	SituationNormal     = "NORMAL"
	SituationCancelled  = "CANCELADA"
	SituationCodePrefix = "COD_"
)

// ExtractedInvoice registro normalizado de una NFS-e. Los montos ausentes quedan
// con Valid=false; los presentes se redondean a 2 decimales.
type ExtractedInvoice struct {
	Number          string
	IssueDate       string // DD/MM/YYYY
	CompetencyDate  string // DD/MM/YYYY
	ProviderTaxID   string // dígitos con apóstrofo para planilla
	ProviderName    string
	TakerTaxID      string
	TakerName       string
	SimplesOptant   string // S | N | vacío
	NationalTaxCode string

	ServiceValue    decimal.NullDecimal
	IR              decimal.NullDecimal
	ISS             decimal.NullDecimal
	ISSRetained     decimal.NullDecimal
	CSLL            decimal.NullDecimal
	Deductions      decimal.NullDecimal
	PIS             decimal.NullDecimal
	COFINS          decimal.NullDecimal
	INSS            decimal.NullDecimal
	UncondDiscount  decimal.NullDecimal
	CondDiscount    decimal.NullDecimal
	OtherRetentions decimal.NullDecimal
	Aliquot         decimal.NullDecimal
	TaxBase         decimal.NullDecimal
	NetValue        decimal.NullDecimal

	Situation string // NORMAL | CANCELADA | COD_<n> | vacío
}

// MonetaryFields punteros a los 15 campos monetarios, en orden de columna.
func (e *ExtractedInvoice) MonetaryFields() []*decimal.NullDecimal {
	return []*decimal.NullDecimal{
		&e.ServiceValue, &e.IR, &e.ISS, &e.ISSRetained, &e.CSLL,
		&e.Deductions, &e.PIS, &e.COFINS, &e.INSS,
		&e.UncondDiscount, &e.CondDiscount, &e.OtherRetentions,
		&e.Aliquot, &e.TaxBase, &e.NetValue,
	}
}

// IsCancelled true si la situación contiene el marcador de cancelación.
func (e *ExtractedInvoice) IsCancelled() bool {
	return strings.Contains(strings.ToUpper(e.Situation), "CANCEL")
}

// ApplyCancellation una nota cancelada no aporta valor: todos los montos en 0.
func (e *ExtractedInvoice) ApplyCancellation() {
	for _, f := range e.MonetaryFields() {
		*f = decimal.NewNullDecimal(decimal.Zero)
	}
	e.Situation = SituationCancelled
}

// RoundMoney redondea a 2 decimales los montos presentes.
func (e *ExtractedInvoice) RoundMoney() {
	for _, f := range e.MonetaryFields() {
		if f.Valid {
			f.Decimal = f.Decimal.Round(2)
		}
	}
}

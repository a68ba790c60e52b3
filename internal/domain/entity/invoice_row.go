package entity

// RowUnknown centinela cuando no se pudo leer una celda de la fila.
const RowUnknown = "?"

// InvoiceRow vista transitoria de una fila de la lista de notas emitidas.
// Nunca se persiste.
type InvoiceRow struct {
	Index          int
	Fingerprint    string // texto completo de la fila
	IssueDateText  string // td[1]
	CompetencyText string // td[3]
	Cancelled      bool   // ícono/tooltip de la columna Situação
}

// Competency competencia de la fila si el texto es MM/YYYY.
func (r InvoiceRow) Competency() (Competency, bool) {
	return ParseCompetencyText(r.CompetencyText)
}

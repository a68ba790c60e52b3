package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Competency período fiscal (año, mes) al que se atribuye una nota.
type Competency struct {
	Year  int
	Month int
}

var competencyTextRe = regexp.MustCompile(`(\d{2})/(\d{4})`)

// NewCompetency valida mes 1..12 y año positivo.
func NewCompetency(year, month int) (Competency, error) {
	if month < 1 || month > 12 || year <= 0 {
		return Competency{}, fmt.Errorf("competencia inválida: %04d-%02d", year, month)
	}
	return Competency{Year: year, Month: month}, nil
}

// PreviousCompetency mes calendario anterior a now (competencia por defecto).
func PreviousCompetency(now time.Time) Competency {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return Competency{Year: prev.Year(), Month: int(prev.Month())}
}

// ParseCompetencyFlag acepta "YYYY-MM" (CLI/API).
func ParseCompetencyFlag(s string) (Competency, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Competency{}, fmt.Errorf("competencia %q: se espera YYYY-MM", s)
	}
	return Competency{Year: t.Year(), Month: int(t.Month())}, nil
}

// ParseCompetencyText extrae "MM/YYYY" del texto de la columna Competência.
func ParseCompetencyText(text string) (Competency, bool) {
	m := competencyTextRe.FindStringSubmatch(text)
	if m == nil {
		return Competency{}, false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	return Competency{Year: year, Month: month}, true
}

// Label formato del portal: MM/YYYY.
func (c Competency) Label() string {
	return fmt.Sprintf("%02d/%04d", c.Month, c.Year)
}

// Folder nombre de la carpeta de salida: YYYY-MM.
func (c Competency) Folder() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month)
}

// Equal compara año y mes.
func (c Competency) Equal(o Competency) bool {
	return c.Year == o.Year && c.Month == o.Month
}

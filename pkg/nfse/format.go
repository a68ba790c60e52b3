// Package nfse contiene conversiones de texto del layout NFS-e Nacional:
// montos en formato brasileño, fechas ISO, CNPJ/CPF para planilla y nombres de archivo.
package nfse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	nonNumericRe = regexp.MustCompile(`[^\d.\-]`)
	isoDateRe    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// ParseMoney acepta "281.31", "281,31", "1.234,56" y "R$ 1.234,56".
// Vacío o ilegible => Valid=false.
func ParseMoney(text string) decimal.NullDecimal {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.NullDecimal{}
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "R$", ""))

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		// padrão brasileño: punto de miles, coma decimal
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	s = nonNumericRe.ReplaceAllString(s, "")
	switch s {
	case "", ".", "-", ".-":
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FormatISODate "YYYY-MM-DD" (con o sin hora) => "DD/MM/YYYY". Sin match => "".
func FormatISODate(s string) string {
	m := isoDateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

// DigitsOnly conserva solo los dígitos.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TaxIDForSheet CNPJ/CPF como texto forzado ("'" + dígitos) para que la planilla
// no lo convierta a notación científica. Sin dígitos => "".
func TaxIDForSheet(s string) string {
	d := DigitsOnly(s)
	if d == "" {
		return ""
	}
	return "'" + d
}

// InvoiceNumber dígitos del número sin ceros a la izquierda ("000123" => "123", "000" => "000").
func InvoiceNumber(s string) string {
	d := DigitsOnly(s)
	if t := strings.TrimLeft(d, "0"); t != "" {
		return t
	}
	return d
}

// CleanFileName reemplaza los caracteres reservados \/:*?"<>| por espacio
// y colapsa espacios.
func CleanFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

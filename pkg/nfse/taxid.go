package nfse

import "fmt"

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// checkDigit módulo 11 de la Receita: resto < 2 ⇒ 0, si no 11 - resto.
func checkDigit(digits string, weights []int) byte {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// ValidateCNPJ valida los dos dígitos verificadores (con o sin máscara).
func ValidateCNPJ(taxID string) error {
	d := DigitsOnly(taxID)
	if len(d) != 14 {
		return fmt.Errorf("CNPJ debe tener 14 dígitos, se encontraron %d", len(d))
	}
	if allSame(d) {
		return fmt.Errorf("CNPJ inválido: %s", d)
	}
	if checkDigit(d, cnpjWeights1) != d[12] || checkDigit(d, cnpjWeights2) != d[13] {
		return fmt.Errorf("CNPJ con dígito verificador inválido: %s", d)
	}
	return nil
}

// ValidateCPF idem para CPF (11 dígitos).
func ValidateCPF(taxID string) error {
	d := DigitsOnly(taxID)
	if len(d) != 11 {
		return fmt.Errorf("CPF debe tener 11 dígitos, se encontraron %d", len(d))
	}
	if allSame(d) {
		return fmt.Errorf("CPF inválido: %s", d)
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	if checkDigit(d, w1) != d[9] || checkDigit(d, w2) != d[10] {
		return fmt.Errorf("CPF con dígito verificador inválido: %s", d)
	}
	return nil
}

// ValidateTaxID CNPJ o CPF según la cantidad de dígitos.
func ValidateTaxID(taxID string) error {
	if len(DigitsOnly(taxID)) == 11 {
		return ValidateCPF(taxID)
	}
	return ValidateCNPJ(taxID)
}

package model

import "strings"

// Tax-id digit lengths: CPF (individual) and CNPJ (entity).
const (
	CPFDigits  = 11
	CNPJDigits = 14
)

// NormalizeTaxID strips every non-digit character from raw, so formatted
// inputs such as "123.456.789-01" and "11.222.333/0001-81" reduce to their
// bare digit sequences.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidTaxID reports whether raw normalizes to exactly 11 digits (CPF) or
// exactly 14 digits (CNPJ). Validation is length-only; check digits are not
// verified.
func IsValidTaxID(raw string) bool {
	n := len(NormalizeTaxID(raw))
	return n == CPFDigits || n == CNPJDigits
}

// IsValidCPF reports whether raw normalizes to exactly 11 digits.
func IsValidCPF(raw string) bool {
	return len(NormalizeTaxID(raw)) == CPFDigits
}

// IsValidCNPJ reports whether raw normalizes to exactly 14 digits.
func IsValidCNPJ(raw string) bool {
	return len(NormalizeTaxID(raw)) == CNPJDigits
}

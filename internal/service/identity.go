package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const cnicDigits = 13

// Digits strips everything but ASCII digits. CNICs and phone numbers are
// stored and compared in this form.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidCNIC reports whether s holds exactly 13 digits once normalized.
func ValidCNIC(s string) bool {
	return len(Digits(s)) == cnicDigits
}

// ValidMobile accepts Pakistani mobile numbers: 03XXXXXXXXX.
func ValidMobile(s string) bool {
	d := Digits(s)
	return len(d) == 11 && strings.HasPrefix(d, "03")
}

// firstName returns the first word of a display name.
func firstName(name string) string {
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

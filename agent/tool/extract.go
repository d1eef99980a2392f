package tool

import (
	"regexp"
	"strings"
)

// CPF length in digits.
const NationalIDLength = 11

var birthDatePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// Digits keeps only the ASCII digits of text.
func Digits(text string) string {
	var b strings.Builder
	for _, ch := range text {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// NationalID extracts an 11-digit identifier, ignoring any punctuation around the digits.
func NationalID(text string) (string, bool) {
	d := Digits(text)
	if len(d) != NationalIDLength {
		return "", false
	}
	return d, true
}

// BirthDate returns the first DD/MM/YYYY substring of text.
func BirthDate(text string) (string, bool) {
	m := birthDatePattern.FindString(text)
	return m, m != ""
}

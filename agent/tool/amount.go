package tool

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Digit runs with the separators a Brazilian speaker might type: 5000 | 5.000 | 5.000,00 | 5000,50
var amountTokenPattern = regexp.MustCompile(`\d[\d.,]*`)

// ParseAmount returns the first strictly positive amount found in text.
func ParseAmount(text string) (float64, bool) {
	for _, v := range Amounts(text) {
		if v > 0 {
			return v, true
		}
	}
	return 0, false
}

// ParseNonNegative returns the first amount >= 0 found in text.
func ParseNonNegative(text string) (float64, bool) {
	values := Amounts(text)
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// Amounts returns every amount token of text, in order, normalized to plain decimals.
// Tokens that cannot be normalized are skipped, and so are negative ones ("-5000").
// A dash between digits ("1000-2000") is a range, not a sign.
func Amounts(text string) []float64 {
	spans := amountTokenPattern.FindAllStringIndex(text, -1)
	out := make([]float64, 0, len(spans))
	for _, span := range spans {
		if negated(text, span[0]) {
			continue
		}
		v, err := normalizeAmount(text[span[0]:span[1]])
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func negated(text string, start int) bool {
	if start == 0 || text[start-1] != '-' {
		return false
	}
	return start < 2 || !isDigit(text[start-2])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func normalizeAmount(token string) (float64, error) {
	token = strings.TrimRight(token, ".,")

	hasComma := strings.Contains(token, ",")
	hasDot := strings.Contains(token, ".")

	switch {
	case hasComma && hasDot:
		// 1.234,56: dot groups thousands, comma is the decimal mark
		token = strings.ReplaceAll(token, ".", "")
		token = strings.Replace(token, ",", ".", 1)
	case hasComma:
		token = strings.Replace(token, ",", ".", 1)
	case hasDot && isThousandsGrouped(token):
		token = strings.ReplaceAll(token, ".", "")
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// isThousandsGrouped reports whether every dot-separated group after the first has
// exactly three digits, e.g. 5.000 or 1.250.000.
func isThousandsGrouped(token string) bool {
	groups := strings.Split(token, ".")
	if len(groups) < 2 || len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FormatCount renders a whole number without decimals.
func FormatCount(v float64) string {
	return strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)
}

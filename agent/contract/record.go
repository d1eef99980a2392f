package contract

import (
	"encoding/json"
	"strings"

	toolx "github.com/tanpawarit/Chative-Banking-Frontline/agent/tool"
)

// Record is a structured extraction result. Values arrive in whatever shape the model
// chose, so every accessor coerces and reports absence instead of failing.
type Record map[string]any

// Float reads a non-negative number. Strings are parsed with Brazilian formatting rules.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, v >= 0
	case int:
		return float64(v), v >= 0
	case json.Number:
		f, err := v.Float64()
		return f, err == nil && f >= 0
	case string:
		return toolx.ParseNonNegative(v)
	default:
		return 0, false
	}
}

// String reads a trimmed, lower-cased string. Numbers are rendered without decimals.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "" || s == "null" || s == "none" {
			return "", false
		}
		return s, true
	case float64:
		return toolx.FormatCount(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return "", false
		}
		return toolx.FormatCount(f), true
	default:
		return "", false
	}
}

// Bool reads true/false, also accepting the Portuguese "sim"/"não".
func (r Record) Bool(key string) (bool, bool) {
	switch v := r[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "sim", "s", "yes":
			return true, true
		case "false", "não", "nao", "n", "no":
			return false, true
		}
	}
	return false, false
}

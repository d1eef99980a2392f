package nlu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

// DecodeRecord pulls the first JSON object out of a model reply. Code fences and
// prose around the object are tolerated; numbers keep their literal form.
func DecodeRecord(content string) (contractx.Record, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object in model response", contractx.ErrSchemaViolation)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(content[start : end+1])))
	dec.UseNumber()

	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode json object: %v", contractx.ErrSchemaViolation, err)
	}
	return contractx.Record(rec), nil
}

// FormatHistory renders the context window as speaker-prefixed lines, skipping empty turns.
func FormatHistory(turns []statex.Turn) string {
	if len(turns) > statex.HistoryWindow {
		turns = turns[len(turns)-statex.HistoryWindow:]
	}

	var b strings.Builder
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		speaker := "Agente"
		if t.Role == statex.RoleUser {
			speaker = "Usuário"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

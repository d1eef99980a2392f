package nlu

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Label is a canonical intent. Every agent maps raw classifier output and raw
// user text through Match so that all of them agree on spelling and accents.
type Label string

const (
	LabelCredit        Label = "credit"
	LabelExchange      Label = "exchange"
	LabelInterview     Label = "interview"
	LabelClose         Label = "close"
	LabelBack          Label = "back"
	LabelQueryLimit    Label = "query_limit"
	LabelIncreaseLimit Label = "increase_limit"
	LabelProceed       Label = "proceed"
	LabelYes           Label = "yes"
	LabelNo            Label = "no"
	LabelOther         Label = "other"
)

// Rule binds a label to folded keyword prefixes. A keyword with a space must
// appear as a phrase.
type Rule struct {
	Label    Label
	Keywords []string
}

var (
	TriageRules = []Rule{
		{Label: LabelClose, Keywords: []string{"encerr", "sair", "tchau", "finaliz"}},
		{Label: LabelExchange, Keywords: []string{"cambio", "cotac", "moeda", "dolar", "euro", "exchange"}},
		{Label: LabelCredit, Keywords: []string{"credit", "emprestimo", "limite"}},
		{Label: LabelInterview, Keywords: []string{"entrevista", "cadastr", "atualiza", "interview"}},
	}

	CreditMenuRules = []Rule{
		{Label: LabelOther, Keywords: []string{"outros"}},
		{Label: LabelIncreaseLimit, Keywords: []string{"aumentar", "aumento", "solicit", "increase"}},
		{Label: LabelQueryLimit, Keywords: []string{"consult", "saldo", "query"}},
		{Label: LabelClose, Keywords: []string{"encerr", "sair", "tchau", "cancel"}},
		{Label: LabelBack, Keywords: []string{"volta", "menu", "triagem", "servico", "back"}},
	}

	AmountRules = []Rule{
		{Label: LabelClose, Keywords: []string{"encerr", "sair", "cancel"}},
		{Label: LabelBack, Keywords: []string{"volta", "menu", "triagem", "servico", "back"}},
		{Label: LabelProceed, Keywords: []string{"continu", "proceed", "valor"}},
	}

	OfferRules = []Rule{
		{Label: LabelNo, Keywords: []string{"nao", "recus", "depois", "nunca", "no"}},
		{Label: LabelYes, Keywords: []string{"sim", "aceit", "quero", "claro", "bora", "ok", "yes", "pode"}},
		{Label: LabelClose, Keywords: []string{"encerr", "sair", "tchau"}},
		{Label: LabelBack, Keywords: []string{"volta", "menu", "triagem", "servico"}},
	}

	ExchangeRules = []Rule{
		{Label: LabelClose, Keywords: []string{"sair", "encerr", "tchau"}},
		{Label: LabelBack, Keywords: []string{"voltar", "volta", "menu"}},
	}
)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and strips diacritics: "Cotação" -> "cotacao".
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Tokens splits folded text on anything that is not a letter or digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Match returns the label of the earliest token that matches any rule, checking
// rules in order for each token. Phrases are checked before tokens. fallback is
// returned when nothing matches.
func Match(raw string, rules []Rule, fallback Label) Label {
	tokens := Tokens(raw)
	if len(tokens) == 0 {
		return fallback
	}

	joined := " " + strings.Join(tokens, " ") + " "
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(kw, " ") && strings.Contains(joined, " "+kw+" ") {
				return rule.Label
			}
		}
	}

	for _, tok := range tokens {
		for _, rule := range rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(kw, " ") {
					continue
				}
				if tok == kw || (len(kw) > 2 && strings.HasPrefix(tok, kw)) {
					return rule.Label
				}
			}
		}
	}
	return fallback
}

// OneOf reports whether the folded text equals one of the given folded phrases.
func OneOf(raw string, phrases ...string) bool {
	folded := strings.Join(Tokens(raw), " ")
	for _, p := range phrases {
		if folded == p {
			return true
		}
	}
	return false
}

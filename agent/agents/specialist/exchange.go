package specialist

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	"github.com/tanpawarit/Chative-Banking-Frontline/agent/nlu"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

const (
	textExchangeGreeting = "Perfeito, vamos falar sobre cotação das moedas. Sobre qual moeda deseja pesquisar?"
	textExchangeNLUDown  = "Meu sistema de câmbio está instável. Qual moeda deseja consultar?"
	textExchangeClosed   = "Atendimento encerrado."
	textUnknownCurrency  = "Moeda não compreendida. Especifique-a, por favor: (Dólar, Euro, Libra)"
	textQuote            = "Cotação de **%s**: R$ %.4f. Deseja pesquisar outra moeda? (Outros serviços)"
	textQuoteNotFound    = "Cotação de %s indisponível no momento. Deseja tentar outra? (Outros serviços)"
	textRatesDown        = "O provedor de cotações em tempo real está indisponível no momento. Pode tentar mais tarde? (Outros serviços)"
)

// exchangeAgent answers currency quotes against the home currency.
type exchangeAgent struct {
	base
}

func newExchange(classifier contractx.Classifier, deps Deps) *exchangeAgent {
	return &exchangeAgent{base: base{kind: contractx.AgentTypeExchange, classifier: classifier, deps: deps}}
}

func (a *exchangeAgent) Handle(ctx context.Context, req contractx.TurnRequest) contractx.TurnResult {
	s := req.Session
	if _, denied := a.customer(s); denied != nil {
		return *denied
	}

	msg := strings.TrimSpace(req.Message)
	if s.Flags.ExchangeGreetOnEntry || req.Entry || msg == "" {
		s.Flags.ExchangeGreetOnEntry = false
		s.ExchangeState = statex.ExchangeAwaitingCurrency
		return contractx.Continue(textExchangeGreeting)
	}

	if nlu.OneOf(msg, "outros servicos") {
		s.ExchangeState = statex.ExchangeMenu
		return contractx.SilentTransfer(contractx.AgentTypeTriage)
	}

	raw, err := a.classify(ctx, s, a.deps.Prompts.Exchange, msg)
	if err != nil {
		s.ExchangeState = statex.ExchangeAwaitingCurrency
		return contractx.Continue(textExchangeNLUDown)
	}

	switch nlu.Match(raw, nlu.ExchangeRules, nlu.LabelOther) {
	case nlu.LabelClose:
		s.Close()
		return contractx.Close(textExchangeClosed)
	case nlu.LabelBack:
		s.ExchangeState = statex.ExchangeMenu
		return contractx.SilentTransfer(contractx.AgentTypeTriage)
	}

	s.ExchangeState = statex.ExchangeAwaitingCurrency
	code, ok := CurrencyCode(raw)
	if !ok {
		return contractx.Continue(textUnknownCurrency)
	}

	callCtx, cancel := a.call(ctx)
	quote, err := a.deps.Rates.Quote(callCtx, code, a.deps.HomeCurrency)
	cancel()

	switch {
	case err == nil:
		name := quote.Name
		if strings.TrimSpace(name) == "" {
			name = code + "/" + a.deps.HomeCurrency
		}
		return contractx.Continue(fmt.Sprintf(textQuote, name, quote.Rate))
	case isNotFound(err):
		return contractx.Continue(fmt.Sprintf(textQuoteNotFound, code))
	default:
		a.failed(s, collabRates, err)
		return contractx.Continue(textRatesDown)
	}
}

// CurrencyCode accepts classifier output that is exactly three ASCII letters once
// surrounding quotes and punctuation are stripped. Case is normalized to upper.
func CurrencyCode(raw string) (string, bool) {
	code := strings.TrimFunc(strings.TrimSpace(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	code = strings.ToUpper(code)
	if len(code) != 3 {
		return "", false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return code, true
}

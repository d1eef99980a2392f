package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	"github.com/tanpawarit/Chative-Banking-Frontline/agent/nlu"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Frontline/agent/tool"
)

const (
	textCreditMenu      = "Vamos falar de crédito. Posso consultar seu limite ou analisar um pedido de aumento. (Consultar limite, Aumentar limite)"
	textCreditNLUDown   = "Meu classificador está passando por instabilidades temporárias. Tente novamente em alguns segundos."
	textCurrentLimit    = "Seu limite atual é R$ %.2f. Posso ajudar em algo mais? (Aumentar limite, Outros serviços)"
	textAskAmount       = "Qual o valor de limite desejado? (Ex: 5000)"
	textCreditClosed    = "Entendido. Atendimento encerrado."
	textCreditRephrase  = "Por favor, escolha uma opção para créditos: (Consultar limite, Aumentar limite, Outros serviços)"
	textAmountNLUDown   = "Desculpe, falha na interpretação da sua mensagem. Qual seria o valor?"
	textCreditCancelled = "Operação cancelada. Atendimento encerrado."
	textAmountMissing   = "Valor não identificado. Digite apenas o número (ex: 5000)."
	textScoreDown       = "Nosso serviço de consulta de scores está temporariamente indisponível. Tente novamente em instantes informando o valor desejado."
	textApproved        = "Solicitação APROVADA baseada no seu score (%d). Novo limite: R$ %.2f."
	textRejected        = "Seu score não aprova este aumento automático. Deseja fazer uma entrevista rápida para atualizar dados e tentar novamente? (Sim, Não)"
	textOfferNLUDown    = "Desculpe, meu classificador falhou. Deseja iniciar a entrevista? (Sim, Não)"
	textOfferDeclined   = "Tudo bem. Mais alguma demanda de crédito? (Consultar limite, Aumentar limite, Outros serviços)"
)

// Literal answers to the interview offer, folded.
var (
	offerYes = []string{"sim", "s", "quero", "claro", "aceito", "bora"}
	offerNo  = []string{"nao", "n", "depois", "nunca"}
)

// creditAgent reports limits and runs limit-increase requests against the score tiers.
type creditAgent struct {
	base
}

func newCredit(classifier contractx.Classifier, deps Deps) *creditAgent {
	return &creditAgent{base: base{kind: contractx.AgentTypeCredit, classifier: classifier, deps: deps}}
}

func (a *creditAgent) Handle(ctx context.Context, req contractx.TurnRequest) contractx.TurnResult {
	s := req.Session
	customer, denied := a.customer(s)
	if denied != nil {
		return *denied
	}

	if s.Flags.CreditMenuOnEntry {
		s.Flags.CreditMenuOnEntry = false
		s.CreditState = statex.CreditMenu
		return contractx.Continue(textCreditMenu)
	}

	msg := strings.TrimSpace(req.Message)
	if req.Entry {
		return contractx.Continue(creditPrompt(s.CreditState))
	}

	switch s.CreditState {
	case statex.CreditAwaitingAmount:
		return a.awaitingAmount(ctx, s, customer, msg, req)
	case statex.CreditOfferInterview:
		return a.offerInterview(ctx, s, msg)
	default:
		return a.menu(ctx, s, customer, msg)
	}
}

func (a *creditAgent) menu(ctx context.Context, s *statex.Session, customer *statex.Customer, msg string) contractx.TurnResult {
	var label nlu.Label
	if nlu.OneOf(msg, "outros servicos") {
		label = nlu.LabelBack
	} else {
		raw, err := a.classify(ctx, s, a.deps.Prompts.CreditMenu, msg)
		if err != nil {
			return contractx.Continue(textCreditNLUDown)
		}
		label = nlu.Match(raw, nlu.CreditMenuRules, nlu.LabelOther)
	}

	switch label {
	case nlu.LabelQueryLimit:
		return contractx.Continue(fmt.Sprintf(textCurrentLimit, customer.CreditLimit))
	case nlu.LabelIncreaseLimit:
		s.CreditState = statex.CreditAwaitingAmount
		return contractx.Continue(textAskAmount)
	case nlu.LabelClose:
		s.Close()
		return contractx.Close(textCreditClosed)
	case nlu.LabelBack:
		s.CreditState = statex.CreditMenu
		return contractx.SilentTransfer(contractx.AgentTypeTriage)
	default:
		return contractx.Continue(textCreditRephrase)
	}
}

func (a *creditAgent) awaitingAmount(
	ctx context.Context,
	s *statex.Session,
	customer *statex.Customer,
	msg string,
	req contractx.TurnRequest,
) contractx.TurnResult {
	amount, hasAmount := toolx.ParseAmount(msg)

	// Escape intents come first: "cancelar" must never reach the amount parser.
	raw, err := a.classify(ctx, s, a.deps.Prompts.CreditAmount, msg)
	switch {
	case err != nil && !hasAmount:
		return contractx.Continue(textAmountNLUDown)
	case err == nil:
		switch nlu.Match(raw, nlu.AmountRules, nlu.LabelProceed) {
		case nlu.LabelClose:
			s.CreditState = statex.CreditMenu
			s.Close()
			return contractx.Close(textCreditCancelled)
		case nlu.LabelBack:
			s.CreditState = statex.CreditMenu
			return contractx.SilentTransfer(contractx.AgentTypeTriage)
		}
	}

	if !hasAmount {
		return contractx.Continue(textAmountMissing)
	}

	callCtx, cancel := a.call(ctx)
	ceiling, err := a.deps.Registry.MaxLimit(callCtx, customer.Score)
	cancel()
	if err != nil && !isNotFound(err) {
		a.failed(s, collabRegistry, err)
		return contractx.Continue(textScoreDown)
	}

	// No tier covering the score is a rejection, not an outage.
	approved := err == nil && amount <= ceiling
	status := contractx.LimitRejected
	if approved {
		status = contractx.LimitApproved
	}
	a.record(ctx, s, contractx.LimitRequest{
		ID:             a.deps.NewID(),
		CustomerID:     customer.ID,
		RequestedAt:    req.Now,
		CurrentLimit:   customer.CreditLimit,
		RequestedLimit: amount,
		Status:         status,
	})

	if approved {
		customer.CreditLimit = amount
		s.CreditState = statex.CreditMenu
		return contractx.Continue(fmt.Sprintf(textApproved, customer.Score, amount))
	}
	s.CreditState = statex.CreditOfferInterview
	return contractx.Continue(textRejected)
}

// record writes the audit entry. A failure is logged and counted but never changes the reply.
func (a *creditAgent) record(ctx context.Context, s *statex.Session, req contractx.LimitRequest) {
	callCtx, cancel := a.call(ctx)
	defer cancel()
	if err := a.deps.Registry.RecordLimitRequest(callCtx, req); err != nil {
		a.failed(s, collabRegistry, err)
		return
	}
	a.logger(s).Debug().Str("request_id", req.ID).Str("status", string(req.Status)).Msg("limit request recorded")
}

func (a *creditAgent) offerInterview(ctx context.Context, s *statex.Session, msg string) contractx.TurnResult {
	var label nlu.Label
	switch {
	case nlu.OneOf(msg, offerYes...):
		label = nlu.LabelYes
	case nlu.OneOf(msg, offerNo...):
		label = nlu.LabelNo
	default:
		raw, err := a.classify(ctx, s, a.deps.Prompts.CreditOffer, msg)
		if err != nil {
			return contractx.Continue(textOfferNLUDown)
		}
		label = nlu.Match(raw, nlu.OfferRules, nlu.LabelOther)
	}

	s.CreditState = statex.CreditMenu
	switch label {
	case nlu.LabelYes:
		return contractx.SilentTransfer(contractx.AgentTypeInterview)
	case nlu.LabelClose:
		s.Close()
		return contractx.Close(textCreditCancelled)
	case nlu.LabelBack:
		return contractx.SilentTransfer(contractx.AgentTypeTriage)
	default:
		return contractx.Continue(textOfferDeclined)
	}
}

// creditPrompt is what credit says when re-entered without new input.
func creditPrompt(state statex.CreditState) string {
	switch state {
	case statex.CreditAwaitingAmount:
		return textAskAmount
	case statex.CreditOfferInterview:
		return textRejected
	default:
		return textCreditMenu
	}
}

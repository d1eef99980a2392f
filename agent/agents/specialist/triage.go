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
	textWelcome            = "Olá! Bem-vindo ao Banco Ágil. Sou o assistente virtual. Informe seu CPF, por favor."
	textAskBirthDate       = "Obrigado! Agora sua data de nascimento, no formato DD/MM/AAAA."
	textInvalidID          = "CPF inválido. Certifique-se de digitar 11 dígitos."
	textInvalidDate        = "Data inválida. Use o formato DD/MM/AAAA."
	textDirectoryDown      = "Desculpe, nosso sistema de cadastro está temporariamente indisponível. Por favor, tente novamente mais tarde."
	textAuthLocked         = "Não foi possível autenticar seus dados após 3 tentativas. O atendimento será encerrado. Obrigado."
	textAuthRetry          = "Dados não conferem. Tentativas restantes: %d. Informe seu CPF novamente."
	textAuthenticated      = "Autenticação realizada com sucesso, %s! Em que posso ajudar hoje? (Crédito, Cotação de Moedas, Atualização Cadastral)"
	textTriageNLUDown      = "Desculpe, meu sistema de interpretação está indisponível agora. Poderia repetir?"
	textTriageClosed       = "Atendimento encerrado. Obrigado por escolher o Banco Ágil! Até logo."
	textTriageRephrase     = "Poderia reformular? Atendo demandas sobre (Crédito, Cotação de Moedas, Atualização Cadastral)."
	textConversationClosed = "Este atendimento já foi encerrado."
)

// triageAgent authenticates the customer and routes to the domain agents.
type triageAgent struct {
	base
	prompt string
}

func newTriage(classifier contractx.Classifier, deps Deps) *triageAgent {
	return &triageAgent{
		base:   base{kind: contractx.AgentTypeTriage, classifier: classifier, deps: deps},
		prompt: deps.Prompts.Triage,
	}
}

func (a *triageAgent) Handle(ctx context.Context, req contractx.TurnRequest) contractx.TurnResult {
	s := req.Session
	msg := strings.TrimSpace(req.Message)

	switch s.GlobalState {
	case statex.StateClosed:
		return contractx.Close(textConversationClosed)
	case statex.StateAwaitingID:
		return a.awaitingID(s, msg)
	case statex.StateAwaitingBirthDate:
		return a.awaitingBirthDate(ctx, s, msg)
	case statex.StateAuthenticated:
		return a.authenticated(ctx, s, msg, req.Entry)
	default:
		// Greeting starts a fresh authentication flow.
		s.Attempts = 0
		s.PendingID = ""
		s.GlobalState = statex.StateAwaitingID
		return contractx.Continue(textWelcome)
	}
}

func (a *triageAgent) awaitingID(s *statex.Session, msg string) contractx.TurnResult {
	id, ok := toolx.NationalID(msg)
	if !ok {
		return contractx.Continue(textInvalidID)
	}
	s.PendingID = id
	s.GlobalState = statex.StateAwaitingBirthDate
	return contractx.Continue(textAskBirthDate)
}

func (a *triageAgent) awaitingBirthDate(ctx context.Context, s *statex.Session, msg string) contractx.TurnResult {
	date, ok := toolx.BirthDate(msg)
	if !ok {
		return contractx.Continue(textInvalidDate)
	}

	callCtx, cancel := a.call(ctx)
	profile, err := a.deps.Directory.Lookup(callCtx, s.PendingID, date)
	cancel()

	switch {
	case err == nil:
		customer := profile
		s.Customer = &customer
		s.GlobalState = statex.StateAuthenticated
		s.PendingID = ""
		a.logger(s).Info().Str("customer", maskID(customer.ID)).Msg("customer authenticated")
		return contractx.Continue(fmt.Sprintf(textAuthenticated, customer.Name))

	case isNotFound(err):
		s.Attempts++
		a.logger(s).Info().Str("customer", maskID(s.PendingID)).Int("attempts", s.Attempts).Msg("credential mismatch")
		s.PendingID = ""
		if s.Attempts >= statex.MaxAttempts {
			s.Close()
			return contractx.Close(textAuthLocked)
		}
		s.GlobalState = statex.StateAwaitingID
		return contractx.Continue(fmt.Sprintf(textAuthRetry, statex.MaxAttempts-s.Attempts))

	default:
		a.failed(s, collabDirectory, err)
		return contractx.Continue(textDirectoryDown)
	}
}

func (a *triageAgent) authenticated(ctx context.Context, s *statex.Session, msg string, entry bool) contractx.TurnResult {
	if entry || msg == "" {
		return contractx.Continue(textMainMenu)
	}

	label, ok := quickReply(msg)
	if !ok {
		raw, err := a.classify(ctx, s, a.prompt, msg)
		if err != nil {
			return contractx.Continue(textTriageNLUDown)
		}
		label = nlu.Match(raw, nlu.TriageRules, nlu.LabelOther)
	}

	switch label {
	case nlu.LabelClose:
		s.Close()
		a.logger(s).Info().Msg("session closed by customer")
		return contractx.Close(textTriageClosed)
	case nlu.LabelCredit:
		s.Flags.CreditMenuOnEntry = true
		return contractx.SilentTransfer(contractx.AgentTypeCredit)
	case nlu.LabelExchange:
		s.Flags.ExchangeGreetOnEntry = true
		return contractx.SilentTransfer(contractx.AgentTypeExchange)
	case nlu.LabelInterview:
		return contractx.SilentTransfer(contractx.AgentTypeInterview)
	default:
		return contractx.Continue(textTriageRephrase)
	}
}

// quickReply maps the menu button labels without asking the classifier.
func quickReply(msg string) (nlu.Label, bool) {
	switch {
	case nlu.OneOf(msg, "credito"):
		return nlu.LabelCredit, true
	case nlu.OneOf(msg, "cotacao de moedas"):
		return nlu.LabelExchange, true
	case nlu.OneOf(msg, "atualizacao cadastral"):
		return nlu.LabelInterview, true
	default:
		return "", false
	}
}

package specialist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Banking-Frontline/agent/metrics"
	promptx "github.com/tanpawarit/Chative-Banking-Frontline/agent/prompt"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

const (
	defaultCallTimeout  = 10 * time.Second
	defaultHomeCurrency = "BRL"
)

// Collaborator names used in logs and metrics.
const (
	collabNLU       = "nlu"
	collabDirectory = "directory"
	collabRates     = "rates"
	collabRegistry  = "registry"
)

const (
	textMainMenu         = "Com o que mais posso ajudá-lo hoje? (Crédito, Cotação de Moedas, Atualização Cadastral)"
	textNotAuthenticated = "Sessão não encontrada ou não autenticada. Por favor, inicie pelo atendimento inicial."
)

// Deps are the collaborators shared by every agent.
type Deps struct {
	Directory contractx.CustomerDirectory
	Rates     contractx.RateQuote
	Registry  contractx.ScoreRegistry
	Prompts   promptx.PromptSet
	Metrics   *metricsx.Metrics

	// Timeout bounds each directory, rate and registry call.
	Timeout      time.Duration
	HomeCurrency string
	NewID        func() string
}

func (d Deps) withDefaults() Deps {
	if d.Timeout <= 0 {
		d.Timeout = defaultCallTimeout
	}
	if strings.TrimSpace(d.HomeCurrency) == "" {
		d.HomeCurrency = defaultHomeCurrency
	}
	d.HomeCurrency = strings.ToUpper(strings.TrimSpace(d.HomeCurrency))
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Prompts == (promptx.PromptSet{}) {
		d.Prompts = promptx.LoadPromptSet()
	}
	return d
}

// base carries what every agent needs to talk to its collaborators.
type base struct {
	kind       contractx.AgentType
	classifier contractx.Classifier
	deps       Deps
}

func (b base) logger(s *statex.Session) *zerolog.Logger {
	l := log.With().Str("agent", string(b.kind)).Str("session_id", s.ID).Logger()
	return &l
}

func (b base) classify(ctx context.Context, s *statex.Session, instruction string, message string) (string, error) {
	raw, err := b.classifier.Classify(ctx, contractx.ClassifyRequest{
		Utterance:   message,
		History:     s.Recent(),
		Instruction: instruction,
	})
	if err != nil {
		b.failed(s, collabNLU, err)
		return "", err
	}
	b.logger(s).Debug().Str("label", raw).Msg("classified")
	return raw, nil
}

func (b base) extract(ctx context.Context, s *statex.Session, instruction string, message string) (contractx.Record, error) {
	rec, err := b.classifier.Extract(ctx, contractx.ClassifyRequest{
		Utterance:   message,
		History:     s.Recent(),
		Instruction: instruction,
	})
	if err != nil {
		b.failed(s, collabNLU, err)
		return nil, err
	}
	return rec, nil
}

// call bounds one collaborator call with the configured timeout.
func (b base) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.deps.Timeout)
}

func (b base) failed(s *statex.Session, collaborator string, err error) {
	b.deps.Metrics.RecordFailure(collaborator)
	b.logger(s).Warn().Str("collaborator", collaborator).Err(err).Msg("collaborator call failed")
}

// customer guards agents that only run after authentication.
func (b base) customer(s *statex.Session) (*statex.Customer, *contractx.TurnResult) {
	if s.IsAuthenticated() && s.Customer != nil {
		return s.Customer, nil
	}
	res := contractx.Transfer(contractx.AgentTypeTriage, textNotAuthenticated)
	return nil, &res
}

func isNotFound(err error) bool {
	return errors.Is(err, contractx.ErrNotFound)
}

// maskID keeps the last two digits of a CPF for logs.
func maskID(id string) string {
	if len(id) <= 2 {
		return "**"
	}
	return strings.Repeat("*", len(id)-2) + id[len(id)-2:]
}

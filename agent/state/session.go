package state

import (
	"errors"
	"time"
)

// Session is the per-conversation source of truth shared by every agent.
// - GlobalState is owned by triage and gates every other agent.
// - Each agent keeps its own sub-state; all of them survive transfers.
type Session struct {
	// Identity
	ID string `json:"id"`

	// Triage / authentication
	GlobalState GlobalState `json:"global_state"`
	Attempts    int         `json:"attempts"`
	PendingID   string      `json:"pending_id,omitempty"`
	Customer    *Customer   `json:"customer,omitempty"`

	// Routing
	ActiveAgent    AgentKind       `json:"active_agent"`
	CreditState    CreditState     `json:"credit_state"`
	ExchangeState  ExchangeState   `json:"exchange_state"`
	InterviewState InterviewState  `json:"interview_state"`
	Interview      *InterviewDraft `json:"interview,omitempty"`
	Flags          TransferFlags   `json:"flags"`

	History []Turn `json:"history,omitempty"` // append-only

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AgentKind string

const (
	AgentTriage    AgentKind = "triage"
	AgentCredit    AgentKind = "credit"
	AgentExchange  AgentKind = "exchange"
	AgentInterview AgentKind = "interview"
)

func (a AgentKind) Valid() bool {
	switch a {
	case AgentTriage, AgentCredit, AgentExchange, AgentInterview:
		return true
	default:
		return false
	}
}

type GlobalState string

const (
	StateGreeting          GlobalState = "GREETING"
	StateAwaitingID        GlobalState = "AWAITING_ID"
	StateAwaitingBirthDate GlobalState = "AWAITING_BIRTH_DATE"
	StateAuthenticated     GlobalState = "AUTHENTICATED"
	StateClosed            GlobalState = "CLOSED"
)

type CreditState string

const (
	CreditMenu           CreditState = "MENU"
	CreditAwaitingAmount CreditState = "AWAITING_AMOUNT"
	CreditOfferInterview CreditState = "OFFER_INTERVIEW"
)

type ExchangeState string

const (
	ExchangeMenu             ExchangeState = "MENU"
	ExchangeAwaitingCurrency ExchangeState = "AWAITING_CURRENCY"
)

type InterviewState string

const (
	InterviewStart      InterviewState = "START"
	InterviewCollecting InterviewState = "COLLECTING"
)

// MaxAttempts is the authentication retry budget.
const MaxAttempts = 3

// Customer is the authenticated profile. Credit and interview update it in place.
type Customer struct {
	ID          string  `json:"id"` // CPF, digits only
	Name        string  `json:"name"`
	BirthDate   string  `json:"birth_date"`
	CreditLimit float64 `json:"credit_limit"`
	Score       int     `json:"score"`
}

// TransferFlags are one-shot markers consumed by the agent they target.
type TransferFlags struct {
	// CreditMenuOnEntry makes credit show its menu instead of classifying the next message.
	CreditMenuOnEntry bool `json:"credit_menu_on_entry,omitempty"`
	// ExchangeGreetOnEntry makes exchange ask for a currency on its next turn.
	ExchangeGreetOnEntry bool `json:"exchange_greet_on_entry,omitempty"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// HistoryWindow is the number of recent turns any agent is allowed to read.
const HistoryWindow = 6

var (
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidAgent    = errors.New("invalid active agent")
	ErrCustomerMissing = errors.New("authenticated session has no customer")
)

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		GlobalState:    StateGreeting,
		ActiveAgent:    AgentTriage,
		CreditState:    CreditMenu,
		ExchangeState:  ExchangeMenu,
		InterviewState: InterviewStart,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) IsClosed() bool {
	return s != nil && s.GlobalState == StateClosed
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.GlobalState == StateAuthenticated
}

// Close moves the session to its terminal state.
func (s *Session) Close() {
	s.GlobalState = StateClosed
}

func (s *Session) Append(role Role, text string) {
	s.History = append(s.History, Turn{Role: role, Text: text})
}

// Recent returns at most HistoryWindow of the latest turns. The slice is a copy.
func (s *Session) Recent() []Turn {
	if s == nil || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - HistoryWindow
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

// Clone returns a deep copy: no pointer or slice is shared with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	out.Interview = s.Interview.Clone()
	if s.History != nil {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ID == "" {
		return ErrInvalidSession
	}
	if !s.ActiveAgent.Valid() {
		return ErrInvalidAgent
	}
	if s.GlobalState == StateAuthenticated && s.Customer == nil {
		return ErrCustomerMissing
	}
	return nil
}

/* ----------------------------- Interview draft ----------------------------- */

type Employment string

const (
	EmploymentFormal     Employment = "formal"
	EmploymentAutonomous Employment = "autonomous"
	EmploymentUnemployed Employment = "unemployed"
)

// InterviewDraft accumulates interview answers across turns. Nil means not answered yet.
type InterviewDraft struct {
	Income     *float64    `json:"income,omitempty"`
	Employment *Employment `json:"employment,omitempty"`
	Expenses   *float64    `json:"expenses,omitempty"`
	Dependents *string     `json:"dependents,omitempty"` // "0" | "1" | "2" | "3+"
	HasDebt    *bool       `json:"has_debt,omitempty"`
}

// Missing lists the unanswered fields in prompt order, using their customer-facing labels.
func (d *InterviewDraft) Missing() []string {
	if d == nil {
		return []string{
			"renda mensal",
			"ocupação (formal, autônomo ou desempregado)",
			"despesas fixas",
			"número de dependentes",
			"se possui dívidas ativas",
		}
	}
	var missing []string
	if d.Income == nil {
		missing = append(missing, "renda mensal")
	}
	if d.Employment == nil {
		missing = append(missing, "ocupação (formal, autônomo ou desempregado)")
	}
	if d.Expenses == nil {
		missing = append(missing, "despesas fixas")
	}
	if d.Dependents == nil {
		missing = append(missing, "número de dependentes")
	}
	if d.HasDebt == nil {
		missing = append(missing, "se possui dívidas ativas")
	}
	return missing
}

func (d *InterviewDraft) Clone() *InterviewDraft {
	if d == nil {
		return nil
	}
	return &InterviewDraft{
		Income:     clonePtr(d.Income),
		Employment: clonePtr(d.Employment),
		Expenses:   clonePtr(d.Expenses),
		Dependents: clonePtr(d.Dependents),
		HasDebt:    clonePtr(d.HasDebt),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (d *InterviewDraft) Complete() bool {
	return d != nil && len(d.Missing()) == 0
}

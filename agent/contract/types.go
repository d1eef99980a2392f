package contract

import (
	"time"

	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

type AgentType = statex.AgentKind

const (
	AgentTypeTriage    = statex.AgentTriage
	AgentTypeCredit    = statex.AgentCredit
	AgentTypeExchange  = statex.AgentExchange
	AgentTypeInterview = statex.AgentInterview
)

type Action string

const (
	ActionContinue Action = "continue"
	ActionTransfer Action = "transfer"
	ActionClose    Action = "close"
)

// TurnRequest is one unit of work for an agent. Entry marks the zero-input turn an agent
// runs right after a silent transfer; Message is empty then.
type TurnRequest struct {
	Session *statex.Session
	Message string
	Entry   bool
	Now     time.Time
}

// TurnResult is the outcome of a single agent turn.
// Silent transfers carry no text and ask the router to run the target's entry turn now.
type TurnResult struct {
	Text   string    `json:"text"`
	Action Action    `json:"action"`
	Target AgentType `json:"target,omitempty"`
	Silent bool      `json:"-"`
}

// Reply is what the router hands back to the transport.
type Reply struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Action    Action    `json:"action"`
	Target    AgentType `json:"target,omitempty"`
}

func Continue(text string) TurnResult {
	return TurnResult{Text: text, Action: ActionContinue}
}

func Close(text string) TurnResult {
	return TurnResult{Text: text, Action: ActionClose}
}

func Transfer(target AgentType, text string) TurnResult {
	return TurnResult{Text: text, Action: ActionTransfer, Target: target}
}

func SilentTransfer(target AgentType) TurnResult {
	return TurnResult{Action: ActionTransfer, Target: target, Silent: true}
}

// ClassifyRequest is one call into the natural-language collaborator.
type ClassifyRequest struct {
	Utterance   string
	History     []statex.Turn
	Instruction string
}

// Quote is a currency rate against the home currency.
type Quote struct {
	Code string
	Name string
	Rate float64
}

type LimitStatus string

const (
	LimitApproved LimitStatus = "aprovado"
	LimitRejected LimitStatus = "rejeitado"
)

// LimitRequest is the audit record of a credit-limit increase request.
type LimitRequest struct {
	ID             string
	CustomerID     string
	RequestedAt    time.Time
	CurrentLimit   float64
	RequestedLimit float64
	Status         LimitStatus
}

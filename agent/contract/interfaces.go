package contract

import (
	"context"

	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

// Agent owns one domain of the conversation. It never returns an error:
// every failure mode is a TurnResult.
type Agent interface {
	Handle(ctx context.Context, req TurnRequest) TurnResult
}

type Registry interface {
	Agent(agentType AgentType) (Agent, error)
}

// Classifier is the natural-language collaborator. Its output is untrusted.
type Classifier interface {
	// Classify returns a single lower-cased label or short free text.
	Classify(ctx context.Context, req ClassifyRequest) (string, error)
	// Extract returns a loosely-typed structured record.
	Extract(ctx context.Context, req ClassifyRequest) (Record, error)
}

// CustomerDirectory resolves an identifier pair to a profile.
// Returns ErrNotFound on a credential mismatch.
type CustomerDirectory interface {
	Lookup(ctx context.Context, customerID string, birthDate string) (statex.Customer, error)
}

// RateQuote returns ErrNotFound when the provider does not know the pair.
type RateQuote interface {
	Quote(ctx context.Context, code string, homeCurrency string) (Quote, error)
}

// ScoreRegistry holds score-tier ceilings and persists score and limit changes.
type ScoreRegistry interface {
	// MaxLimit returns the approval ceiling for score, ErrNotFound when no tier covers it.
	MaxLimit(ctx context.Context, score int) (float64, error)
	RecordLimitRequest(ctx context.Context, req LimitRequest) error
	UpdateScore(ctx context.Context, customerID string, score int) error
}

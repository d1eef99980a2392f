package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Banking-Frontline/agent/metrics"
	nodex "github.com/tanpawarit/Chative-Banking-Frontline/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

var ErrInvalidSession = nodex.ErrInvalidSession

type Config struct {
	// MaxChain bounds the number of agents one request may run through silent transfers.
	MaxChain int
}

// Orchestrator is the router: it owns the store and hands each inbound message to
// exactly one agent, following silent transfers within the same request.
type Orchestrator struct {
	store   statex.Store
	agents  contractx.Registry
	metrics *metricsx.Metrics

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	maxChain int
	now      func() time.Time
}

func New(
	store statex.Store,
	agents contractx.Registry,
	metrics *metricsx.Metrics,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}

	maxChain := cfg.MaxChain
	if maxChain <= 0 {
		maxChain = nodex.DefaultMaxChain
	}

	o := &Orchestrator{
		store:    store,
		agents:   agents,
		metrics:  metrics,
		maxChain: maxChain,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one customer turn. Turns on the same session id are serialized;
// different ids proceed in parallel.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return contractx.Reply{}, ErrInvalidSession
	}

	unlock := o.store.Lock(sessionID)
	defer unlock()

	started := o.now()
	defer func() { o.metrics.ObserveTurn(o.now().Sub(started)) }()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("handle message failed")
		return contractx.Reply{}, err
	}
	return out.Reply, nil
}

// Session returns a copy of the stored session.
func (o *Orchestrator) Session(sessionID string) (*statex.Session, bool) {
	return o.store.Get(strings.TrimSpace(sessionID))
}

package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	metricsx "github.com/tanpawarit/Chative-Banking-Frontline/agent/metrics"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

const DefaultMaxChain = 4

// DispatchAgent delivers the message to the agent that owns the session and follows
// silent transfers into the target's entry turn. The chain may not revisit an agent
// and may not run more than maxChain agents.
func DispatchAgent(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	maxChain int,
	metrics *metricsx.Metrics,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if maxChain <= 0 {
		maxChain = DefaultMaxChain
	}

	st := in.Session
	target := owner(st)
	req := contractx.TurnRequest{Session: st, Message: in.Text, Now: in.Now}
	visited := make(map[contractx.AgentType]bool, maxChain)

	for {
		if visited[target] || len(in.Chain) >= maxChain {
			return nil, fmt.Errorf("%w: chain=%v next=%s", contractx.ErrTransferLoop, in.Chain, target)
		}
		visited[target] = true
		in.Chain = append(in.Chain, target)

		agent, err := registry.Agent(target)
		if err != nil {
			return nil, err
		}

		res := agent.Handle(ctx, req)
		metrics.RecordTurn(string(target), string(res.Action))
		in.Agent = target

		switch res.Action {
		case contractx.ActionClose:
			st.Close()
		case contractx.ActionTransfer:
			if !res.Target.Valid() {
				return nil, fmt.Errorf("%w: agent %s transferred to %q", contractx.ErrValidation, target, res.Target)
			}
			metrics.RecordTransfer(string(target), string(res.Target))
			log.Debug().
				Str("session_id", st.ID).
				Str("from", string(target)).
				Str("to", string(res.Target)).
				Bool("silent", res.Silent).
				Msg("agent transfer")

			st.ActiveAgent = res.Target
			if res.Silent {
				target = res.Target
				req = contractx.TurnRequest{Session: st, Entry: true, Now: in.Now}
				continue
			}
		}

		in.Result = res
		return in, nil
	}
}

// owner picks the agent for a new message. Nobody but triage talks to an
// unauthenticated or closed session.
func owner(st *statex.Session) contractx.AgentType {
	if !st.IsAuthenticated() || !st.ActiveAgent.Valid() {
		return contractx.AgentTypeTriage
	}
	return st.ActiveAgent
}

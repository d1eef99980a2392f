package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

func LoadOrCreateSession(in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, ok := store.Get(in.SessionID)
	if !ok {
		st = store.Create(in.SessionID, statex.NewSession(in.SessionID, in.Now))
	}
	in.Session = st
	in.ClosedAtStart = st.IsClosed()
	return in, nil
}

func AppendUserTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !in.ClosedAtStart {
		in.Session.Append(statex.RoleUser, in.Text)
	}
	return in, nil
}

// AppendAgentTurn records the text the customer actually sees, once per request.
func AppendAgentTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !in.ClosedAtStart {
		in.Session.Append(statex.RoleAgent, strings.TrimSpace(in.Result.Text))
	}
	return in, nil
}

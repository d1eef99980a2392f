package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Frontline/agent/state"
)

func ValidateAndSaveState(in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}

	saved := in.Session.Clone()
	if !store.Update(in.SessionID, func(dst *statex.Session) { *dst = *saved }) {
		// Deleted while the turn was running.
		store.Create(in.SessionID, saved)
	}
	return in, nil
}

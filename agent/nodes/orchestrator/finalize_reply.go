package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Frontline/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	text := strings.TrimSpace(in.Result.Text)
	if text == "" {
		return GraphOutput{}, fmt.Errorf("%w: agent %s returned empty text", contractx.ErrValidation, in.Agent)
	}

	reply := contractx.Reply{
		SessionID: in.SessionID,
		Text:      text,
		Action:    in.Result.Action,
	}
	if reply.Action == contractx.ActionTransfer {
		reply.Target = in.Result.Target
	}
	return GraphOutput{Reply: reply}, nil
}

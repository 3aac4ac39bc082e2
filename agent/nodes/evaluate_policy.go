package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
)

func EvaluatePolicy(ctx context.Context, in *GraphState, engine *policyx.Engine) (*GraphState, error) {
	if in == nil || in.Memory == nil {
		return nil, fmt.Errorf("%w: graph memory is nil", contractx.ErrValidation)
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: policy engine is nil", contractx.ErrValidation)
	}

	in.Decision = engine.Evaluate(policyx.Input{
		Intent: in.Resolution.Intent,
		Role:   in.Role,
		Text:   in.Text,
		Memory: in.Memory,
	})
	in.Reply = in.Decision.Prompt

	log.Ctx(ctx).Debug().
		Str("conversation_id", in.ConversationID).
		Str("intent", string(in.Decision.Intent)).
		Str("state", string(in.Decision.State)).
		Str("missing", string(in.Decision.Missing)).
		Msg("policy evaluated")
	return in, nil
}

// ShouldDispatch reports whether the turn goes on to the tool.
func ShouldDispatch(in *GraphState) bool {
	return in != nil && in.Decision.State == policyx.StateReady
}

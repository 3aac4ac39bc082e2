package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/normalize"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
)

// NormalizeInput captures direct answers into memory. A cancel wipes the
// conversation memory and ends the turn.
func NormalizeInput(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil || in.Memory == nil {
		return nil, fmt.Errorf("%w: graph memory is nil", contractx.ErrValidation)
	}

	res := normalize.Normalize(in.Text, in.Memory)
	if res.Cancelled {
		in.Memory.Reset()
		in.Cancelled = true
		in.Decision = policyx.Cancelled()
		in.Reply = in.Decision.Prompt
		log.Ctx(ctx).Info().Str("conversation_id", in.ConversationID).Msg("conversation cancelled")
		return in, nil
	}

	if len(res.Written) > 0 {
		log.Ctx(ctx).Debug().
			Str("conversation_id", in.ConversationID).
			Interface("slots", res.Written).
			Msg("normalizer captured slots")
	}
	return in, nil
}

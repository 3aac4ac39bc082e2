package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
)

// MergeSlots copies classifier slots into memory. Unknown names and values
// outside their domain are dropped.
func MergeSlots(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil || in.Memory == nil {
		return nil, fmt.Errorf("%w: graph memory is nil", contractx.ErrValidation)
	}
	if len(in.Resolution.Slots) == 0 {
		return in, nil
	}

	res := in.Memory.Merge(in.Resolution.Slots, statex.ExtractableNames...)
	for name, err := range res.Dropped {
		log.Ctx(ctx).Debug().
			Err(err).
			Str("conversation_id", in.ConversationID).
			Str("slot", name).
			Msg("dropped invalid slot")
	}
	return in, nil
}

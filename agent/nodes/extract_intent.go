package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	nlux "github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/nlu"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

// ExtractIntent asks the classifier for intent and slots and applies the
// keyword fallback. A nil extractor always takes the fallback. A turn that
// resolves to unknown while a flow is open continues that flow, so bare
// answers like "yes" or "SB-001" reach the intent that asked for them.
func ExtractIntent(ctx context.Context, in *GraphState, extractor contractx.Extractor) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if extractor == nil {
		in.Resolution = nlux.Resolution{Intent: nlux.HeuristicIntent(in.Text), Fallback: true}
	} else {
		res, err := extractor.Extract(ctx, in.Text)
		in.Resolution = nlux.Resolve(in.Text, res, err)
	}

	continued := false
	if in.Resolution.Intent == contractx.IntentUnknown && in.ActiveIntent.Valid() && in.ActiveIntent != contractx.IntentUnknown {
		in.Resolution.Intent = in.ActiveIntent
		continued = true
	}

	log.Ctx(ctx).Debug().
		Str("conversation_id", in.ConversationID).
		Str("intent", string(in.Resolution.Intent)).
		Bool("fallback", in.Resolution.Fallback).
		Bool("continued", continued).
		Int("text_len", len(nlux.MaskPII(in.Text))).
		Msg("intent resolved")
	return in, nil
}

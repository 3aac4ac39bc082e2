package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

// ComposeReply phrases a tool outcome. The deterministic template already in
// the state is kept whenever the composer is missing or fails.
func ComposeReply(ctx context.Context, in *GraphState, composer contractx.Composer) (*GraphState, error) {
	if in == nil || in.Outcome == nil {
		return nil, fmt.Errorf("%w: tool outcome is nil", contractx.ErrValidation)
	}

	in.Reply = in.Outcome.Text
	if composer == nil {
		return in, nil
	}

	text, err := composer.Compose(ctx, contractx.ComposeRequest{
		Intent:     in.Decision.Intent,
		Slots:      in.Memory.Snapshot(),
		ToolResult: in.Outcome.Preview,
	})
	if err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("conversation_id", in.ConversationID).
			Str("tool", string(in.Outcome.Tool)).
			Msg("composer failed, using template")
		return in, nil
	}
	if text = strings.TrimSpace(text); text != "" {
		in.Reply = text
	}
	return in, nil
}

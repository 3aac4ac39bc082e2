package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	toolx "github.com/tanpawarit/Chative-Banking-Assistant/agent/tool"
)

const (
	auditOutcomeOK      = "ok"
	auditOutcomeFailed  = "failed"
	auditOutcomeTimeout = "timeout"
)

// DispatchTool runs the tool chosen by the policy. A failed call is not a
// graph error: the turn ends with the apology and memory keeps whatever the
// dispatcher left in it.
func DispatchTool(
	ctx context.Context,
	in *GraphState,
	dispatcher *toolx.Dispatcher,
	audit contractx.AuditSink,
) (*GraphState, error) {
	if in == nil || in.Memory == nil {
		return nil, fmt.Errorf("%w: graph memory is nil", contractx.ErrValidation)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: tool dispatcher is nil", contractx.ErrValidation)
	}

	tool := in.Decision.Tool
	out, err := dispatcher.Dispatch(ctx, tool, in.Memory)

	ev := contractx.AuditEvent{
		ConversationID: in.ConversationID,
		Role:           in.Role,
		Tool:           tool,
		Outcome:        auditOutcomeOK,
		At:             in.Now,
	}
	if err != nil {
		ev.Outcome = auditOutcomeFailed
		if errors.Is(err, contractx.ErrToolTimeout) {
			ev.Outcome = auditOutcomeTimeout
		}
		ev.Error = err.Error()
	} else {
		ev.ReferenceID = out.ReferenceID
	}
	recordAudit(ctx, audit, ev)

	if err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("conversation_id", in.ConversationID).
			Str("tool", string(tool)).
			Msg("tool call failed")
		in.ToolErr = err
		in.Reply = toolx.FailureText
		return in, nil
	}

	in.Outcome = out
	in.Decision = in.Decision.Dispatched()
	in.Reply = out.Text
	log.Ctx(ctx).Info().
		Str("conversation_id", in.ConversationID).
		Str("tool", string(tool)).
		Str("reference_id", out.ReferenceID).
		Msg("tool dispatched")
	return in, nil
}

// ShouldCompose reports whether a tool outcome is waiting to be rendered.
func ShouldCompose(in *GraphState) bool {
	return in != nil && in.ToolErr == nil && in.Outcome != nil
}

func recordAudit(ctx context.Context, sink contractx.AuditSink, ev contractx.AuditEvent) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, ev); err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("conversation_id", ev.ConversationID).
			Str("tool", string(ev.Tool)).
			Msg("audit record failed")
	}
}

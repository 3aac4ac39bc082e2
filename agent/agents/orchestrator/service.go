// Package orchestrator runs one dialogue turn end to end: normalize, classify,
// decide, dispatch and reply.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Banking-Assistant/agent/nodes"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Assistant/agent/tool"
)

// ApologyText is the reply for any internal failure.
const ApologyText = "Sorry, something went wrong."

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrMessageTooLong      = nodex.ErrMessageTooLong
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

type Config struct {
	CustomerID  string
	ToolTimeout time.Duration
}

type Option func(*Orchestrator)

// WithClock fixes the time source for the turn pipeline and the tools.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyGenerator replaces the idempotency key source for card blocking.
func WithKeyGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newKey = gen
		}
	}
}

type Orchestrator struct {
	sessions   *statex.Manager
	extractor  contractx.Extractor
	composer   contractx.Composer
	engine     *policyx.Engine
	dispatcher *toolx.Dispatcher
	audit      contractx.AuditSink

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now    func() time.Time
	newKey func() string
}

// New wires an orchestrator. models may be nil, in which case every turn is
// classified by the keyword heuristic and replies use templates only.
func New(
	sessions *statex.Manager,
	models contractx.Registry,
	bank contractx.Bank,
	access *policyx.Access,
	audit contractx.AuditSink,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if bank == nil {
		return nil, errors.New("bank is required")
	}

	o := &Orchestrator{
		sessions: sessions,
		engine:   policyx.NewEngine(access),
		audit:    audit,
		now:      time.Now,
	}
	if models != nil {
		o.extractor = models.Extractor()
		o.composer = models.Composer()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	o.dispatcher = toolx.NewDispatcher(bank,
		toolx.WithCustomerID(strings.TrimSpace(cfg.CustomerID)),
		toolx.WithTimeout(cfg.ToolTimeout),
		toolx.WithClock(o.now),
		toolx.WithKeyGenerator(o.newKey),
	)

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one turn. The graph works on a copy of the conversation
// memory, which replaces the stored memory only when the graph succeeds.
func (o *Orchestrator) HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error) {
	in := nodex.GraphInput{
		ConversationID: strings.TrimSpace(req.ConversationID),
		Role:           req.Role,
		Text:           req.Text,
	}
	if err := in.Validate(); err != nil {
		return contractx.TurnResponse{}, err
	}

	var resp contractx.TurnResponse
	err := o.sessions.Do(ctx, in.ConversationID, func(conv *statex.Conversation) error {
		working := conv.Slots.Clone()
		in.Memory = working
		in.ActiveIntent = contractx.Intent(conv.ActiveIntent)

		out, err := o.graphRunner.Invoke(ctx, in)
		if err != nil {
			return err
		}

		conv.Slots = working
		conv.ActiveIntent = ""
		if pending := out.Pending(); pending != contractx.IntentUnknown {
			conv.ActiveIntent = string(pending)
		}
		resp = contractx.TurnResponse{Text: out.Reply, Memory: working.Snapshot()}

		log.Ctx(ctx).Info().
			Str("conversation_id", in.ConversationID).
			Str("intent", string(out.Intent)).
			Str("state", string(out.State)).
			Str("tool", string(out.Tool)).
			Msg("turn handled")
		return nil
	})
	if err != nil {
		return contractx.TurnResponse{}, err
	}
	return resp, nil
}

// Respond is HandleTurn for callers that cannot surface errors. Any failure
// becomes the apology with an empty memory.
func (o *Orchestrator) Respond(ctx context.Context, req contractx.TurnRequest) contractx.TurnResponse {
	resp, err := o.HandleTurn(ctx, req)
	if err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("conversation_id", req.ConversationID).
			Msg("turn failed")
		return contractx.TurnResponse{Text: ApologyText, Memory: map[string]any{}}
	}
	return resp
}

// Memory returns the stored slot snapshot for a conversation, if it exists.
func (o *Orchestrator) Memory(ctx context.Context, conversationID string) (map[string]any, bool, error) {
	return o.sessions.Snapshot(ctx, conversationID)
}

// End forgets a conversation.
func (o *Orchestrator) End(conversationID string) bool {
	return o.sessions.End(conversationID)
}

// IsInvalidInput reports whether err was caused by the request itself.
func IsInvalidInput(err error) bool {
	return nodex.IsInvalidInput(err)
}

package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	nlux "github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/nlu"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Banking-Assistant/agent/tool"
)

// MaxTextRunes bounds a single user message.
const MaxTextRunes = 1000

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrMessageTooLong      = errors.New("message is too long")
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrNilMemory           = errors.New("slot memory is nil")
)

type GraphInput struct {
	ConversationID string
	Role           contractx.Role
	Text           string

	// ActiveIntent is the intent left unfinished by the previous turn.
	ActiveIntent contractx.Intent

	// Memory is the working copy for this turn. Nodes mutate it in place.
	Memory *statex.Memory
}

type GraphOutput struct {
	Reply  string
	State  policyx.State
	Intent contractx.Intent
	Tool   contractx.ToolName
}

// Pending returns the intent a follow-up turn should continue, or unknown
// when the flow reached an end this turn. A ready state at the end of a turn
// means the tool call failed and the user may retry.
func (out GraphOutput) Pending() contractx.Intent {
	switch out.State {
	case policyx.StateCollecting, policyx.StateAwaitingConfirmation, policyx.StateReady:
		return out.Intent
	default:
		return contractx.IntentUnknown
	}
}

type GraphState struct {
	ConversationID string
	Role           contractx.Role
	Text           string
	Now            time.Time
	ActiveIntent   contractx.Intent

	Memory    *statex.Memory
	Cancelled bool

	Resolution nlux.Resolution
	Decision   policyx.Decision

	Outcome *toolx.Outcome
	ToolErr error

	Reply string
}

// Validate checks the caller supplied fields. Memory is checked separately
// because callers validate before they own a working copy.
func (in GraphInput) Validate() error {
	if strings.TrimSpace(in.ConversationID) == "" {
		return ErrInvalidConversation
	}
	if _, err := contractx.ParseRole(string(in.Role)); err != nil {
		return err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return ErrInvalidMessage
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, MaxTextRunes)
	}
	return nil
}

// IsInvalidInput reports whether err came from request validation.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidConversation) ||
		errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, contractx.ErrValidation)
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Memory == nil {
		return nil, ErrNilMemory
	}

	// Validate already accepted the role.
	role, _ := contractx.ParseRole(string(in.Role))

	if nowFn == nil {
		nowFn = time.Now
	}

	return &GraphState{
		ConversationID: strings.TrimSpace(in.ConversationID),
		Role:           role,
		Text:           strings.TrimSpace(in.Text),
		Now:            nowFn().UTC(),
		ActiveIntent:   in.ActiveIntent,
		Memory:         in.Memory,
	}, nil
}

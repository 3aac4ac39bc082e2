package policy

import (
	"fmt"
	"regexp"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
)

var cardSuffixInText = regexp.MustCompile(`\b\d{4}\b`)

// Decision is the outcome of evaluating one turn.
type Decision struct {
	Intent contractx.Intent
	State  State
	// Position is the index of the first missing slot while collecting.
	Position int
	Missing  statex.Name
	// Prompt is the reply text for every state except ready and dispatched.
	Prompt string
	Tool   contractx.ToolName
}

// Cancelled is the decision for a turn the user backed out of.
func Cancelled() Decision {
	return Decision{Intent: contractx.IntentUnknown, State: StateCancelled, Prompt: CancelledText}
}

// Dispatched marks a ready decision as handed to the tool.
func (d Decision) Dispatched() Decision {
	d.State = StateDispatched
	return d
}

type Input struct {
	Intent contractx.Intent
	Role   contractx.Role
	// Text is the raw user text, used to pick up a card suffix typed as a
	// plain answer.
	Text   string
	Memory *statex.Memory
}

type Engine struct {
	access *Access
}

func NewEngine(access *Access) *Engine {
	if access == nil {
		access = Default()
	}
	return &Engine{access: access}
}

func (e *Engine) Access() *Access { return e.access }

// Evaluate derives the dialogue state from slot presence. It only writes to
// memory when it scrapes a card suffix out of the raw text.
func (e *Engine) Evaluate(in Input) Decision {
	flow, ok := FlowFor(in.Intent)
	if !ok {
		return Decision{Intent: contractx.IntentUnknown, State: StateUnrecognized, Prompt: CapabilityText}
	}

	if flow.Intent == contractx.IntentBlockCard && !in.Memory.Has(statex.CardLast4) {
		scrapeCardSuffix(in.Text, in.Memory)
	}

	d := Decision{Intent: flow.Intent, Tool: flow.Tool}

	if pos := flow.FirstMissing(in.Memory); pos < len(flow.Steps) {
		d.State = StateCollecting
		d.Position = pos
		d.Missing = flow.Steps[pos].Slot
		d.Prompt = flow.Steps[pos].Prompt
		return d
	}
	d.Position = len(flow.Steps)

	if e.access.NeedsConfirmation(flow.Tool) && !in.Memory.Flag(statex.Confirmed) {
		d.State = StateAwaitingConfirmation
		d.Prompt = confirmationPrompt(flow, in.Memory)
		return d
	}

	if !e.access.CanCall(in.Role, flow.Tool) {
		d.State = StateDenied
		d.Prompt = flow.Denial
		return d
	}

	d.State = StateReady
	return d
}

func scrapeCardSuffix(text string, mem *statex.Memory) {
	m := cardSuffixInText.FindString(text)
	if m == "" {
		return
	}
	// the pattern already guarantees the slot domain
	_ = mem.Set(statex.CardLast4, statex.String(m))
}

func confirmationPrompt(flow Flow, mem *statex.Memory) string {
	if flow.Tool == contractx.ToolBlockCard {
		last4, _ := mem.Text(statex.CardLast4)
		return fmt.Sprintf("You're about to block the card ending ****%s. Proceed? (yes/no)", last4)
	}
	return fmt.Sprintf("You're about to run %s. Proceed? (yes/no)", flow.Tool)
}

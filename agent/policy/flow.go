// Package policy decides, for one turn, whether the dialogue should ask for
// a slot, ask for confirmation, refuse, or hand a tool to the dispatcher.
package policy

import (
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
)

type State string

const (
	StateCollecting           State = "collecting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateDenied               State = "denied"
	StateReady                State = "ready"
	StateDispatched           State = "dispatched"
	StateCancelled            State = "cancelled"
	StateUnrecognized         State = "unrecognized"
)

// Terminal reports whether the turn ends in this state without asking for
// anything else.
func (s State) Terminal() bool {
	switch s {
	case StateDispatched, StateCancelled, StateUnrecognized:
		return true
	default:
		return false
	}
}

const (
	CancelledText  = "Okay, cancelled."
	CapabilityText = `I can help with blocking a card, mini statement, or loan pre-eligibility. Try: "Block my card ending 1234".`
)

// Step is one required slot and the question that asks for it.
type Step struct {
	Slot   statex.Name
	Prompt string
}

// Flow is the fixed slot sequence for an intent.
type Flow struct {
	Intent contractx.Intent
	Tool   contractx.ToolName
	Steps  []Step
	Denial string
}

var flows = map[contractx.Intent]Flow{
	contractx.IntentBlockCard: {
		Intent: contractx.IntentBlockCard,
		Tool:   contractx.ToolBlockCard,
		Steps: []Step{
			{Slot: statex.CardLast4, Prompt: "Please share last 4 digits of the card to block."},
		},
		Denial: "You are not allowed to block cards.",
	},
	contractx.IntentMiniStatement: {
		Intent: contractx.IntentMiniStatement,
		Tool:   contractx.ToolGetTransactions,
		Steps: []Step{
			{Slot: statex.AccountID, Prompt: "Which account ID? (e.g., SB-001)"},
			{Slot: statex.Limit, Prompt: "How many transactions? (1-10). You can also type 'default'."},
		},
		Denial: "You are not allowed to view mini statements.",
	},
	contractx.IntentLoanPrecheck: {
		Intent: contractx.IntentLoanPrecheck,
		Tool:   contractx.ToolLoanCheck,
		Steps: []Step{
			{Slot: statex.MonthlyIncome, Prompt: "What is your monthly income (₹)?"},
			{Slot: statex.ExistingEMI, Prompt: "Total existing EMIs per month (₹)? If none, say 0."},
			{Slot: statex.TenureMonths, Prompt: "Preferred tenure in months (e.g., 60)?"},
		},
		Denial: "You are not allowed to run loan checks.",
	},
}

// FlowFor returns the flow of a recognised intent.
func FlowFor(intent contractx.Intent) (Flow, bool) {
	f, ok := flows[intent]
	return f, ok
}

// Slots lists the flow's required slot names in order.
func (f Flow) Slots() []statex.Name {
	names := make([]statex.Name, len(f.Steps))
	for i, s := range f.Steps {
		names[i] = s.Slot
	}
	return names
}

// FirstMissing returns the index of the first slot absent from mem, or
// len(f.Steps) when every slot is present.
func (f Flow) FirstMissing(mem *statex.Memory) int {
	for i, s := range f.Steps {
		if !mem.Has(s.Slot) {
			return i
		}
	}
	return len(f.Steps)
}

package contract

import (
	"fmt"
	"strings"
	"time"
)

type AgentType string

const (
	AgentTypeExtractor AgentType = "extractor"
	AgentTypeComposer  AgentType = "composer"
)

type Intent string

const (
	IntentBlockCard     Intent = "block_card"
	IntentMiniStatement Intent = "mini_statement"
	IntentLoanPrecheck  Intent = "loan_precheck"
	IntentUnknown       Intent = "unknown"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentBlockCard, IntentMiniStatement, IntentLoanPrecheck, IntentUnknown:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
}

// ExtractionResult is the classifier output for a single turn. Slots are kept
// as decoded JSON values; they are re-validated before entering slot memory.
type ExtractionResult struct {
	Intent     Intent         `json:"intent"`
	Slots      map[string]any `json:"slots"`
	Confidence float64        `json:"confidence"`
}

type ComposeRequest struct {
	Intent     Intent         `json:"intent"`
	Slots      map[string]any `json:"slots"`
	ToolResult any            `json:"tool_result"`
}

type TurnRequest struct {
	ConversationID string `json:"conversationId"`
	Role           Role   `json:"role"`
	Text           string `json:"text"`
}

type TurnResponse struct {
	Text   string         `json:"text"`
	Memory map[string]any `json:"memory"`
}

type AuditEvent struct {
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Tool           ToolName  `json:"tool"`
	Outcome        string    `json:"outcome"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
}

package contract

import "context"

// Extractor proposes an intent and slots for one user message. Any error means
// "no usable result" and callers fall back to the keyword heuristic.
type Extractor interface {
	Extract(ctx context.Context, text string) (*ExtractionResult, error)
}

// Composer renders a tool or clarification outcome as natural language.
// Callers must always hold a deterministic fallback before calling it.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

type Registry interface {
	Extractor() Extractor
	Composer() Composer
}

// Bank is the set of side-effecting backend operations the assistant may invoke.
type Bank interface {
	BlockCard(ctx context.Context, req BlockCardRequest) (BlockCardResponse, error)
	GetTransactions(ctx context.Context, req TransactionsRequest) (TransactionsResponse, error)
	CheckLoanEligibility(ctx context.Context, req LoanCheckRequest) (LoanCheckResponse, error)
}

type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

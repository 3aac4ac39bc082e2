// Package bank is the reference backend behind the assistant's tools: card
// blocking on a pluggable ledger, a deterministic mini statement and a loan
// pre-check.
package bank

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

const isoDate = "2006-01-02"

var _ contractx.Bank = (*Service)(nil)

type Service struct {
	ledger CardLedger
	now    func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(ledger CardLedger, opts ...ServiceOption) *Service {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	s := &Service{ledger: ledger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// BlockCard blocks a card at most once. Any later call for the same card,
// whatever its idempotency key, gets already_blocked with the original
// reference.
func (s *Service) BlockCard(ctx context.Context, req contractx.BlockCardRequest) (contractx.BlockCardResponse, error) {
	if err := req.Validate(); err != nil {
		return contractx.BlockCardResponse{}, err
	}

	stored, created, err := s.ledger.Block(ctx, BlockRecord{
		CustomerID:     req.CustomerID,
		CardLast4:      req.CardLast4,
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    referenceFor(req.IdempotencyKey),
		BlockedAt:      s.now().UTC(),
	})
	if err != nil {
		return contractx.BlockCardResponse{}, err
	}

	status := contractx.BlockStatusBlocked
	if !created {
		status = contractx.BlockStatusAlreadyBlocked
	}

	log.Ctx(ctx).Info().
		Str("component", "bank").
		Str("customer_id", req.CustomerID).
		Str("status", string(status)).
		Bool("replay", !created && stored.IdempotencyKey == req.IdempotencyKey).
		Str("reference_id", stored.ReferenceID).
		Msg("card block processed")

	return contractx.BlockCardResponse{Status: status, ReferenceID: stored.ReferenceID}, nil
}

func (s *Service) GetTransactions(_ context.Context, req contractx.TransactionsRequest) (contractx.TransactionsResponse, error) {
	if err := req.Validate(); err != nil {
		return contractx.TransactionsResponse{}, err
	}
	return statement(req), nil
}

func (s *Service) CheckLoanEligibility(_ context.Context, req contractx.LoanCheckRequest) (contractx.LoanCheckResponse, error) {
	if err := req.Validate(); err != nil {
		return contractx.LoanCheckResponse{}, err
	}
	return loanEligibility(req), nil
}

func (s *Service) Close() error {
	return s.ledger.Close()
}

func referenceFor(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return "REF-" + key
}

package bank

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidBlock = errors.New("block record is incomplete")

// BlockRecord is the single block held for a customer's card.
type BlockRecord struct {
	CustomerID     string    `json:"customerId" bun:"customer_id,pk"`
	CardLast4      string    `json:"cardLast4" bun:"card_last4,pk"`
	IdempotencyKey string    `json:"idempotencyKey" bun:"idempotency_key,notnull"`
	ReferenceID    string    `json:"referenceId" bun:"reference_id,notnull"`
	BlockedAt      time.Time `json:"blockedAt" bun:"blocked_at,notnull"`
}

func (r BlockRecord) validate() error {
	if r.CustomerID == "" || r.CardLast4 == "" || r.IdempotencyKey == "" || r.ReferenceID == "" {
		return ErrInvalidBlock
	}
	return nil
}

// CardLedger records card blocks. Block stores rec unless the card already
// has a block, and returns the stored record with created=false in that case.
// Implementations must make the check-and-store atomic.
type CardLedger interface {
	Block(ctx context.Context, rec BlockRecord) (stored BlockRecord, created bool, err error)
	Close() error
}

type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]BlockRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]BlockRecord)}
}

func (l *MemoryLedger) Block(_ context.Context, rec BlockRecord) (BlockRecord, bool, error) {
	if err := rec.validate(); err != nil {
		return BlockRecord{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := cardKey(rec.CustomerID, rec.CardLast4)
	if existing, ok := l.records[key]; ok {
		return existing, false, nil
	}
	l.records[key] = rec
	return rec, true, nil
}

func (l *MemoryLedger) Close() error { return nil }

func cardKey(customerID, last4 string) string {
	return customerID + ":" + last4
}

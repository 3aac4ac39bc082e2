// Package tool turns slot memory into validated bank requests, runs them with
// a bounded wait and renders deterministic replies for the results.
package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Banking-Assistant/pkg/timeout"
)

const (
	DefaultCustomerID = "CUST-001"
	DefaultTimeout    = 10 * time.Second
	statementWindow   = 7 * 24 * time.Hour
	isoDate           = "2006-01-02"
)

// Outcome is a finished tool call.
type Outcome struct {
	Tool        contractx.ToolName
	Response    any
	Text        string
	ReferenceID string

	// Preview is the part of the response handed to the reply composer.
	Preview any
}

type Dispatcher struct {
	bank       contractx.Bank
	customerID string
	timeout    time.Duration
	now        func() time.Time
	newKey     func() string
}

type Option func(*Dispatcher)

func WithCustomerID(id string) Option {
	return func(d *Dispatcher) {
		if id != "" {
			d.customerID = id
		}
	}
}

func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithKeyGenerator(gen func() string) Option {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newKey = gen
		}
	}
}

func NewDispatcher(bank contractx.Bank, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bank:       bank,
		customerID: DefaultCustomerID,
		timeout:    DefaultTimeout,
		now:        time.Now,
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch builds the request for tool from mem, validates it and calls the
// bank. Card blocking stores its idempotency key in mem before the call and
// clears the pending action only once the bank has answered.
func (d *Dispatcher) Dispatch(ctx context.Context, tool contractx.ToolName, mem *statex.Memory) (*Outcome, error) {
	if d.bank == nil {
		return nil, fmt.Errorf("%w: bank is not configured", contractx.ErrToolInvoke)
	}
	switch tool {
	case contractx.ToolBlockCard:
		return d.blockCard(ctx, mem)
	case contractx.ToolGetTransactions:
		return d.transactions(ctx, mem)
	case contractx.ToolLoanCheck:
		return d.loanCheck(ctx, mem)
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", contractx.ErrToolInvoke, tool)
	}
}

func (d *Dispatcher) customer(mem *statex.Memory) string {
	if id, ok := mem.Text(statex.CustomerID); ok {
		return id
	}
	return d.customerID
}

func (d *Dispatcher) blockCard(ctx context.Context, mem *statex.Memory) (*Outcome, error) {
	key, ok := mem.Text(statex.IdempotencyKey)
	if !ok {
		key = d.newKey()
		if err := mem.Set(statex.IdempotencyKey, statex.String(key)); err != nil {
			return nil, fmt.Errorf("%w: store idempotency key: %v", contractx.ErrToolInvoke, err)
		}
	}
	last4, _ := mem.Text(statex.CardLast4)

	req := contractx.BlockCardRequest{
		CustomerID:     d.customer(mem),
		CardLast4:      last4,
		Reason:         contractx.BlockReasonLost,
		IdempotencyKey: key,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := timeout.Call(ctx, d.timeout, func(ctx context.Context) (contractx.BlockCardResponse, error) {
		return d.bank.BlockCard(ctx, req)
	})
	if err != nil {
		return nil, d.callError(contractx.ToolBlockCard, err)
	}

	mem.Delete(statex.Confirmed, statex.IdempotencyKey)

	return &Outcome{
		Tool:        contractx.ToolBlockCard,
		Response:    res,
		Preview:     res,
		Text:        blockCardText(last4, res),
		ReferenceID: res.ReferenceID,
	}, nil
}

func (d *Dispatcher) transactions(ctx context.Context, mem *statex.Memory) (*Outcome, error) {
	accountID, _ := mem.Text(statex.AccountID)
	limit, _ := mem.Number(statex.Limit)
	now := d.now().UTC()

	req := contractx.TransactionsRequest{
		CustomerID: d.customer(mem),
		AccountID:  accountID,
		FromDate:   now.Add(-statementWindow).Format(isoDate),
		ToDate:     now.Format(isoDate),
		Limit:      int(limit),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := timeout.Call(ctx, d.timeout, func(ctx context.Context) (contractx.TransactionsResponse, error) {
		return d.bank.GetTransactions(ctx, req)
	})
	if err != nil {
		return nil, d.callError(contractx.ToolGetTransactions, err)
	}
	if len(res.Transactions) > req.Limit {
		res.Transactions = res.Transactions[:req.Limit]
	}

	lines := statementLines(res)
	preview := lines
	if len(preview) > previewLines {
		preview = preview[:previewLines]
	}

	return &Outcome{
		Tool:     contractx.ToolGetTransactions,
		Response: res,
		Preview: map[string]any{
			"accountId": res.AccountID,
			"preview":   preview,
		},
		Text: statementText(res, lines),
	}, nil
}

func (d *Dispatcher) loanCheck(ctx context.Context, mem *statex.Memory) (*Outcome, error) {
	income, _ := mem.Number(statex.MonthlyIncome)
	emi, _ := mem.Number(statex.ExistingEMI)
	tenure, _ := mem.Number(statex.TenureMonths)

	req := contractx.LoanCheckRequest{
		CustomerID:    d.customer(mem),
		MonthlyIncome: income,
		ExistingEMI:   emi,
		TenureMonths:  int(tenure),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := timeout.Call(ctx, d.timeout, func(ctx context.Context) (contractx.LoanCheckResponse, error) {
		return d.bank.CheckLoanEligibility(ctx, req)
	})
	if err != nil {
		return nil, d.callError(contractx.ToolLoanCheck, err)
	}

	return &Outcome{
		Tool:     contractx.ToolLoanCheck,
		Response: res,
		Preview:  res,
		Text:     loanText(res),
	}, nil
}

func (d *Dispatcher) callError(tool contractx.ToolName, err error) error {
	if errors.Is(err, timeout.ErrDeadline) {
		log.Warn().Str("tool", string(tool)).Dur("timeout", d.timeout).Msg("tool call outcome unknown")
		return fmt.Errorf("%w: %s: %v", contractx.ErrToolTimeout, tool, err)
	}
	return fmt.Errorf("%w: %s: %v", contractx.ErrToolInvoke, tool, err)
}

package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
)

type fakeBank struct {
	blockReqs []contractx.BlockCardRequest
	txReqs    []contractx.TransactionsRequest
	loanReqs  []contractx.LoanCheckRequest

	blockErr error
	block    func(contractx.BlockCardRequest) contractx.BlockCardResponse
	txs      []contractx.Transaction
	loan     contractx.LoanCheckResponse
	delay    time.Duration
}

func (b *fakeBank) BlockCard(ctx context.Context, req contractx.BlockCardRequest) (contractx.BlockCardResponse, error) {
	b.blockReqs = append(b.blockReqs, req)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return contractx.BlockCardResponse{}, ctx.Err()
		}
	}
	if b.blockErr != nil {
		return contractx.BlockCardResponse{}, b.blockErr
	}
	if b.block != nil {
		return b.block(req), nil
	}
	return contractx.BlockCardResponse{Status: contractx.BlockStatusBlocked, ReferenceID: "REF-" + req.IdempotencyKey[:8]}, nil
}

func (b *fakeBank) GetTransactions(_ context.Context, req contractx.TransactionsRequest) (contractx.TransactionsResponse, error) {
	b.txReqs = append(b.txReqs, req)
	return contractx.TransactionsResponse{AccountID: req.AccountID, Transactions: b.txs}, nil
}

func (b *fakeBank) CheckLoanEligibility(_ context.Context, req contractx.LoanCheckRequest) (contractx.LoanCheckResponse, error) {
	b.loanReqs = append(b.loanReqs, req)
	return b.loan, nil
}

func restore(t *testing.T, values map[string]any) *statex.Memory {
	t.Helper()
	m, err := statex.Restore(values)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	return m
}

func fixedKey(key string) func() string {
	return func() string { return key }
}

func TestDispatchBlockCardClearsPendingAction(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{}
	d := NewDispatcher(bank, WithKeyGenerator(fixedKey("abcdef12-3456")))
	mem := restore(t, map[string]any{"cardLast4": "1234", "confirmed": true})

	out, err := d.Dispatch(context.Background(), contractx.ToolBlockCard, mem)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Text != "Card ****1234 blocked. Ref: REF-abcdef12." {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if out.ReferenceID != "REF-abcdef12" {
		t.Fatalf("unexpected reference: %q", out.ReferenceID)
	}
	if len(bank.blockReqs) != 1 {
		t.Fatalf("expected one call, got %d", len(bank.blockReqs))
	}
	req := bank.blockReqs[0]
	if req.CustomerID != DefaultCustomerID || req.Reason != contractx.BlockReasonLost || req.IdempotencyKey != "abcdef12-3456" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if mem.Has(statex.Confirmed) || mem.Has(statex.IdempotencyKey) {
		t.Fatalf("pending action must be cleared, memory=%v", mem.Snapshot())
	}
}

func TestDispatchBlockCardReusesKeyAfterFailure(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{blockErr: errors.New("upstream 503")}
	calls := 0
	d := NewDispatcher(bank, WithKeyGenerator(func() string {
		calls++
		return "11111111-aaaa"
	}))
	mem := restore(t, map[string]any{"cardLast4": "1234", "confirmed": true})

	_, err := d.Dispatch(context.Background(), contractx.ToolBlockCard, mem)
	if !errors.Is(err, contractx.ErrToolInvoke) {
		t.Fatalf("expected ErrToolInvoke, got %v", err)
	}
	key, ok := mem.Text(statex.IdempotencyKey)
	if !ok || key != "11111111-aaaa" {
		t.Fatalf("key must survive a failed call, memory=%v", mem.Snapshot())
	}
	if !mem.Flag(statex.Confirmed) {
		t.Fatal("confirmation must survive a failed call")
	}

	bank.blockErr = nil
	if _, err := d.Dispatch(context.Background(), contractx.ToolBlockCard, mem); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 1 {
		t.Fatalf("key must be generated once, got %d", calls)
	}
	if bank.blockReqs[0].IdempotencyKey != bank.blockReqs[1].IdempotencyKey {
		t.Fatal("retry must reuse the same key")
	}
}

func TestDispatchBlockCardTimeout(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{delay: time.Second}
	d := NewDispatcher(bank, WithTimeout(20*time.Millisecond), WithKeyGenerator(fixedKey("22222222-bbbb")))
	mem := restore(t, map[string]any{"cardLast4": "9876", "confirmed": true})

	_, err := d.Dispatch(context.Background(), contractx.ToolBlockCard, mem)
	if !errors.Is(err, contractx.ErrToolTimeout) {
		t.Fatalf("expected ErrToolTimeout, got %v", err)
	}
	if !mem.Has(statex.IdempotencyKey) {
		t.Fatal("unknown outcome must keep the key")
	}
}

func TestDispatchAlreadyBlocked(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{block: func(contractx.BlockCardRequest) contractx.BlockCardResponse {
		return contractx.BlockCardResponse{Status: contractx.BlockStatusAlreadyBlocked, ReferenceID: "REF-00000000"}
	}}
	d := NewDispatcher(bank, WithCustomerID("CUST-777"))
	mem := restore(t, map[string]any{"cardLast4": "1234", "confirmed": true})

	out, err := d.Dispatch(context.Background(), contractx.ToolBlockCard, mem)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Text != "Card ****1234 was already blocked. Ref: REF-00000000." {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if bank.blockReqs[0].CustomerID != "CUST-777" {
		t.Fatalf("unexpected customer: %q", bank.blockReqs[0].CustomerID)
	}
}

func TestDispatchTransactions(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{txs: []contractx.Transaction{
		{ID: "TX-1", Date: "2026-10-14", Desc: "POS", Amount: -250.5},
		{ID: "TX-2", Date: "2026-10-13", Desc: "NEFT", Amount: 1000},
		{ID: "TX-3", Date: "2026-10-12", Desc: "ATM", Amount: -500},
	}}
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	d := NewDispatcher(bank, WithClock(func() time.Time { return now }))
	mem := restore(t, map[string]any{"accountId": "SB-001", "limit": float64(2), "customerId": "CUST-042"})

	out, err := d.Dispatch(context.Background(), contractx.ToolGetTransactions, mem)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	req := bank.txReqs[0]
	if req.FromDate != "2026-10-08" || req.ToDate != "2026-10-15" || req.Limit != 2 || req.CustomerID != "CUST-042" {
		t.Fatalf("unexpected request: %+v", req)
	}
	want := "Mini statement for SB-001 (last 2):\n- 2026-10-14 POS DR ₹250.5\n- 2026-10-13 NEFT CR ₹1000"
	if out.Text != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", out.Text, want)
	}
}

func TestDispatchLoanCheck(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{loan: contractx.LoanCheckResponse{Eligible: true, MaxAmount: 2250000.4}}
	d := NewDispatcher(bank)
	mem := restore(t, map[string]any{"monthlyIncome": float64(50000), "existingEmi": float64(5000), "tenureMonths": float64(60)})

	out, err := d.Dispatch(context.Background(), contractx.ToolLoanCheck, mem)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Text != "Eligible. Estimated max amount ~ ₹2250000." {
		t.Fatalf("unexpected text: %q", out.Text)
	}

	bank.loan = contractx.LoanCheckResponse{Reason: "Low disposable income"}
	out, err = d.Dispatch(context.Background(), contractx.ToolLoanCheck, mem)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Text != "Not eligible: Low disposable income." {
		t.Fatalf("unexpected text: %q", out.Text)
	}
}

func TestDispatchRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{}
	d := NewDispatcher(bank)

	_, err := d.Dispatch(context.Background(), contractx.ToolLoanCheck, statex.NewMemory())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(bank.loanReqs) != 0 {
		t.Fatal("invalid request must not reach the bank")
	}
}

func TestCatalogDescribesEveryTool(t *testing.T) {
	t.Parallel()

	desc := Describe()
	for _, name := range contractx.AllTools {
		info, ok := Info(name)
		if !ok {
			t.Fatalf("missing catalog entry for %s", name)
		}
		if !strings.Contains(desc, info.Name+": ") {
			t.Fatalf("description misses %s:\n%s", name, desc)
		}
	}
}

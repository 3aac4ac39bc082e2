package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	policyx "github.com/tanpawarit/Chative-Banking-Assistant/agent/policy"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/tool/bank"
)

var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]*contractx.ExtractionResult
	err     error
	calls   int
	hook    func()
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (*contractx.ExtractionResult, error) {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[text]; ok {
		return res, nil
	}
	return &contractx.ExtractionResult{Intent: contractx.IntentUnknown, Confidence: 0.9}, nil
}

type fakeComposer struct {
	text string
	err  error
	reqs []contractx.ComposeRequest
}

func (f *fakeComposer) Compose(_ context.Context, req contractx.ComposeRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeRegistry struct {
	extractor contractx.Extractor
	composer  contractx.Composer
}

func (f *fakeRegistry) Extractor() contractx.Extractor { return f.extractor }
func (f *fakeRegistry) Composer() contractx.Composer   { return f.composer }

// countingBank wraps the reference bank, counting calls and optionally
// failing card blocks. lostReplyErr is returned after the block is recorded.
type countingBank struct {
	*bank.Service
	mu           sync.Mutex
	blocks       []contractx.BlockCardRequest
	txCalls      int
	loanCalls    int
	blockErr     error
	lostReplyErr error
}

func (b *countingBank) BlockCard(ctx context.Context, req contractx.BlockCardRequest) (contractx.BlockCardResponse, error) {
	b.mu.Lock()
	b.blocks = append(b.blocks, req)
	err, lost := b.blockErr, b.lostReplyErr
	b.mu.Unlock()
	if err != nil {
		return contractx.BlockCardResponse{}, err
	}
	res, err := b.Service.BlockCard(ctx, req)
	if err == nil && lost != nil {
		return contractx.BlockCardResponse{}, lost
	}
	return res, err
}

func (b *countingBank) GetTransactions(ctx context.Context, req contractx.TransactionsRequest) (contractx.TransactionsResponse, error) {
	b.mu.Lock()
	b.txCalls++
	b.mu.Unlock()
	return b.Service.GetTransactions(ctx, req)
}

func (b *countingBank) CheckLoanEligibility(ctx context.Context, req contractx.LoanCheckRequest) (contractx.LoanCheckResponse, error) {
	b.mu.Lock()
	b.loanCalls++
	b.mu.Unlock()
	return b.Service.CheckLoanEligibility(ctx, req)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []contractx.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, ev contractx.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func sequentialKeys() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%08d-aaaa-bbbb-cccc-dddddddddddd", n.Add(1))
	}
}

type harness struct {
	o     *Orchestrator
	bank  *countingBank
	audit *recordingAudit
}

func newHarness(t *testing.T, models contractx.Registry, access *policyx.Access) *harness {
	t.Helper()

	b := &countingBank{Service: bank.NewService(nil, bank.WithClock(func() time.Time { return fixedNow }))}
	t.Cleanup(func() { _ = b.Close() })

	audit := &recordingAudit{}
	o, err := New(statex.NewManager(), models, b, access, audit, Config{},
		WithClock(func() time.Time { return fixedNow }),
		WithKeyGenerator(sequentialKeys()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{o: o, bank: b, audit: audit}
}

func (h *harness) turn(t *testing.T, conversationID string, role contractx.Role, text string) contractx.TurnResponse {
	t.Helper()
	resp, err := h.o.HandleTurn(context.Background(), contractx.TurnRequest{
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
	})
	if err != nil {
		t.Fatalf("HandleTurn(%q) error = %v", text, err)
	}
	return resp
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil, bank.NewService(nil), nil, nil, Config{}); err == nil {
		t.Fatal("expected error without session manager")
	}
	if _, err := New(statex.NewManager(), nil, nil, nil, nil, Config{}); err == nil {
		t.Fatal("expected error without bank")
	}
}

func TestHandleTurnInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	cases := []struct {
		name string
		req  contractx.TurnRequest
		want error
	}{
		{"empty conversation", contractx.TurnRequest{ConversationID: " ", Role: contractx.RoleCustomer, Text: "hi"}, ErrInvalidConversation},
		{"empty text", contractx.TurnRequest{ConversationID: "c1", Role: contractx.RoleCustomer, Text: "   "}, ErrInvalidMessage},
		{"long text", contractx.TurnRequest{ConversationID: "c1", Role: contractx.RoleCustomer, Text: strings.Repeat("a", 1001)}, ErrMessageTooLong},
		{"unknown role", contractx.TurnRequest{ConversationID: "c1", Role: "teller", Text: "hi"}, contractx.ErrValidation},
	}
	for _, tc := range cases {
		_, err := h.o.HandleTurn(context.Background(), tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsInvalidInput(err) {
			t.Fatalf("%s: IsInvalidInput(%v) = false", tc.name, err)
		}
	}

	if _, ok, _ := h.o.Memory(context.Background(), "c1"); ok {
		t.Fatal("invalid turns must not create a conversation")
	}
}

func TestHandleTurnAcceptsMaxLengthText(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	resp := h.turn(t, "c1", contractx.RoleCustomer, strings.Repeat("a", 1000))
	if resp.Text != policyx.CapabilityText {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
}

func TestRespondNeverFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	resp := h.o.Respond(context.Background(), contractx.TurnRequest{ConversationID: "", Role: contractx.RoleCustomer, Text: "hi"})
	if resp.Text != ApologyText {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if resp.Memory == nil || len(resp.Memory) != 0 {
		t.Fatalf("expected empty memory object, got %#v", resp.Memory)
	}
}

func TestBlockCardConfirmationFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	if resp.Text != "You're about to block the card ending ****1234. Proceed? (yes/no)" {
		t.Fatalf("unexpected confirmation prompt: %q", resp.Text)
	}
	if resp.Memory["cardLast4"] != "1234" {
		t.Fatalf("expected scraped card suffix, got %#v", resp.Memory)
	}
	if len(h.bank.blocks) != 0 {
		t.Fatalf("tool must not run before confirmation, got %d calls", len(h.bank.blocks))
	}

	resp = h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != "Card ****1234 blocked. Ref: REF-00000001." {
		t.Fatalf("unexpected block reply: %q", resp.Text)
	}
	if len(h.bank.blocks) != 1 {
		t.Fatalf("expected one block call, got %d", len(h.bank.blocks))
	}
	if _, ok := resp.Memory["confirmed"]; ok {
		t.Fatalf("confirmed must be cleared after the block, got %#v", resp.Memory)
	}
	if _, ok := resp.Memory["idempotencyKey"]; ok {
		t.Fatalf("idempotency key must be cleared after the block, got %#v", resp.Memory)
	}

	if len(h.audit.events) != 1 || h.audit.events[0].Outcome != "ok" || h.audit.events[0].ReferenceID != "REF-00000001" {
		t.Fatalf("unexpected audit events: %#v", h.audit.events)
	}

	// The flow is finished: a stray yes no longer reaches the tool.
	resp = h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != policyx.CapabilityText {
		t.Fatalf("unexpected reply after completed flow: %q", resp.Text)
	}
	if len(h.bank.blocks) != 1 {
		t.Fatalf("expected still one block call, got %d", len(h.bank.blocks))
	}
}

func TestBlockCardAsksForSuffix(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "please block my card")
	if resp.Text != "Please share last 4 digits of the card to block." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}

	resp = h.turn(t, "c1", contractx.RoleCustomer, "it ends in 9876")
	if resp.Text != "You're about to block the card ending ****9876. Proceed? (yes/no)" {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
}

func TestBlockCardAlreadyBlocked(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	h.turn(t, "c1", contractx.RoleCustomer, "yes")

	h.turn(t, "c2", contractx.RoleCustomer, "Block my card ending 1234")
	resp := h.turn(t, "c2", contractx.RoleCustomer, "yes")
	if resp.Text != "Card ****1234 was already blocked. Ref: REF-00000001." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
}

func TestToolFailureKeepsMemoryForRetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.bank.blockErr = errors.New("core banking offline")

	h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	resp := h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != "Sorry, I couldn't complete that right now. Please try again." {
		t.Fatalf("unexpected failure reply: %q", resp.Text)
	}
	if resp.Memory["confirmed"] != true {
		t.Fatalf("confirmed must survive a failed call, got %#v", resp.Memory)
	}
	key, _ := resp.Memory["idempotencyKey"].(string)
	if key == "" {
		t.Fatalf("idempotency key must survive a failed call, got %#v", resp.Memory)
	}
	if h.audit.events[0].Outcome != "failed" {
		t.Fatalf("unexpected audit outcome: %#v", h.audit.events[0])
	}

	h.bank.mu.Lock()
	h.bank.blockErr = nil
	h.bank.mu.Unlock()

	resp = h.turn(t, "c1", contractx.RoleCustomer, "try again")
	if !strings.HasPrefix(resp.Text, "Card ****1234 blocked.") {
		t.Fatalf("unexpected retry reply: %q", resp.Text)
	}
	if len(h.bank.blocks) != 2 || h.bank.blocks[1].IdempotencyKey != key {
		t.Fatalf("retry must reuse key %q, got %#v", key, h.bank.blocks)
	}
}

func TestRetryAfterLostReplyReportsAlreadyBlocked(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.bank.lostReplyErr = errors.New("connection reset")

	h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	resp := h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != "Sorry, I couldn't complete that right now. Please try again." {
		t.Fatalf("unexpected failure reply: %q", resp.Text)
	}

	h.bank.mu.Lock()
	h.bank.lostReplyErr = nil
	h.bank.mu.Unlock()

	resp = h.turn(t, "c1", contractx.RoleCustomer, "try again")
	if resp.Text != "Card ****1234 was already blocked. Ref: REF-00000001." {
		t.Fatalf("unexpected retry reply: %q", resp.Text)
	}
	if len(h.bank.blocks) != 2 || h.bank.blocks[0].IdempotencyKey != h.bank.blocks[1].IdempotencyKey {
		t.Fatalf("retry must reuse the first key, got %#v", h.bank.blocks)
	}
}

func TestDeniedRole(t *testing.T) {
	t.Parallel()

	access, err := policyx.Parse([]byte(`
roles:
  customer: [getTransactions, loanCheck]
  admin: [blockCard, getTransactions, loanCheck]
confirmation:
  blockCard: true
  getTransactions: false
  loanCheck: false
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	h := newHarness(t, nil, access)
	h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	resp := h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != "You are not allowed to block cards." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if len(h.bank.blocks) != 0 {
		t.Fatalf("denied role must not reach the tool, got %d calls", len(h.bank.blocks))
	}
}

func TestMiniStatementFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "show my mini statement")
	if resp.Text != "Which account ID? (e.g., SB-001)" {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	resp = h.turn(t, "c1", contractx.RoleCustomer, "SB-001")
	if resp.Text != "How many transactions? (1-10). You can also type 'default'." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	resp = h.turn(t, "c1", contractx.RoleCustomer, "default")
	if !strings.HasPrefix(resp.Text, "Mini statement for SB-001 (last 5):\n- 2026-10-15 ") {
		t.Fatalf("unexpected statement: %q", resp.Text)
	}
	if got := strings.Count(resp.Text, "\n- "); got != 5 {
		t.Fatalf("expected 5 lines, got %d in %q", got, resp.Text)
	}
	if resp.Memory["accountId"] != "SB-001" || resp.Memory["limit"] != float64(5) {
		t.Fatalf("unexpected memory: %#v", resp.Memory)
	}
	if h.bank.txCalls != 1 {
		t.Fatalf("expected one statement call, got %d", h.bank.txCalls)
	}
}

func TestLoanPrecheckFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)

	steps := []struct {
		text string
		want string
	}{
		{"am I eligible for a loan?", "What is your monthly income (₹)?"},
		{"5000", "Total existing EMIs per month (₹)? If none, say 0."},
		{"0", "Preferred tenure in months (e.g., 60)?"},
		{"60", "Not eligible: Low disposable income."},
	}
	var resp contractx.TurnResponse
	for _, step := range steps {
		resp = h.turn(t, "c1", contractx.RoleCustomer, step.text)
		if resp.Text != step.want {
			t.Fatalf("turn %q: got %q, want %q", step.text, resp.Text, step.want)
		}
	}
	if resp.Memory["monthlyIncome"] != float64(5000) || resp.Memory["existingEmi"] != float64(0) || resp.Memory["tenureMonths"] != float64(60) {
		t.Fatalf("unexpected memory: %#v", resp.Memory)
	}
	if h.bank.loanCalls != 1 {
		t.Fatalf("expected one loan call, got %d", h.bank.loanCalls)
	}
}

func TestLoanPrecheckAsksIncomeFirst(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{results: map[string]*contractx.ExtractionResult{
		"loan eligibility, 60 months, emi 2000": {
			Intent:     contractx.IntentLoanPrecheck,
			Slots:      map[string]any{"tenureMonths": 60, "existingEmi": 2000},
			Confidence: 0.9,
		},
	}}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "loan eligibility, 60 months, emi 2000")
	if resp.Text != "What is your monthly income (₹)?" {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if h.bank.loanCalls != 0 {
		t.Fatalf("expected no loan call, got %d", h.bank.loanCalls)
	}
	if _, ok := resp.Memory["monthlyIncome"]; ok {
		t.Fatalf("income must not be inferred, got %#v", resp.Memory)
	}
}

func TestCancelClearsMemory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.turn(t, "c1", contractx.RoleCustomer, "show my mini statement")
	h.turn(t, "c1", contractx.RoleCustomer, "SB-001")

	resp := h.turn(t, "c1", contractx.RoleCustomer, "cancel")
	if resp.Text != "Okay, cancelled." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if len(resp.Memory) != 0 {
		t.Fatalf("cancel must clear memory, got %#v", resp.Memory)
	}

	resp = h.turn(t, "c1", contractx.RoleCustomer, "7")
	if resp.Text != policyx.CapabilityText {
		t.Fatalf("cancelled flow must not continue, got %q", resp.Text)
	}
	if h.bank.txCalls != 0 {
		t.Fatalf("expected no statement call, got %d", h.bank.txCalls)
	}
}

func TestUnknownIntentReturnsCapabilities(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	resp := h.turn(t, "c1", contractx.RoleCustomer, "what's the weather like?")
	if resp.Text != policyx.CapabilityText {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if len(resp.Memory) != 0 {
		t.Fatalf("unexpected memory: %#v", resp.Memory)
	}
}

func TestLowConfidenceUsesHeuristicButKeepsSlots(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{results: map[string]*contractx.ExtractionResult{
		"statement for SB-002 please": {
			Intent:     contractx.IntentLoanPrecheck,
			Slots:      map[string]any{"accountId": "SB-002", "limit": 3},
			Confidence: 0.2,
		},
	}}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "statement for SB-002 please")
	if !strings.HasPrefix(resp.Text, "Mini statement for SB-002 (last 3):") {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
}

func TestExtractorSlotsAreValidated(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{results: map[string]*contractx.ExtractionResult{
		"check my loan eligibility": {
			Intent:     contractx.IntentLoanPrecheck,
			Slots:      map[string]any{"monthlyIncome": -10, "tenureMonths": 2, "pin": "0000"},
			Confidence: 0.95,
		},
	}}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "check my loan eligibility")
	if resp.Text != "What is your monthly income (₹)?" {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if len(resp.Memory) != 0 {
		t.Fatalf("invalid slots must be dropped, got %#v", resp.Memory)
	}
}

func TestExtractorFailureFallsBack(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{err: fmt.Errorf("%w: upstream 503", contractx.ErrModelInvoke)}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	resp := h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 4321")
	if resp.Text != "You're about to block the card ending ****4321. Proceed? (yes/no)" {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if extractor.calls != 1 {
		t.Fatalf("expected one extractor call, got %d", extractor.calls)
	}
}

func TestComposerRendersToolResult(t *testing.T) {
	t.Parallel()

	composer := &fakeComposer{text: "All done, your card is blocked."}
	h := newHarness(t, &fakeRegistry{extractor: &fakeExtractor{err: errors.New("off")}, composer: composer}, nil)

	h.turn(t, "c1", contractx.RoleCustomer, "Block my card ending 1234")
	if len(composer.reqs) != 0 {
		t.Fatalf("composer must only run for tool results, got %d calls", len(composer.reqs))
	}

	resp := h.turn(t, "c1", contractx.RoleCustomer, "yes")
	if resp.Text != "All done, your card is blocked." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if len(composer.reqs) != 1 {
		t.Fatalf("expected one composer call, got %d", len(composer.reqs))
	}
	req := composer.reqs[0]
	if req.Intent != contractx.IntentBlockCard {
		t.Fatalf("unexpected compose intent: %q", req.Intent)
	}
	res, ok := req.ToolResult.(contractx.BlockCardResponse)
	if !ok || res.ReferenceID != "REF-00000001" {
		t.Fatalf("unexpected tool result: %#v", req.ToolResult)
	}
}

func TestComposerFailureUsesTemplate(t *testing.T) {
	t.Parallel()

	composer := &fakeComposer{err: fmt.Errorf("%w: reply too long", contractx.ErrSchemaViolation)}
	h := newHarness(t, &fakeRegistry{composer: composer}, nil)

	h.turn(t, "c1", contractx.RoleCustomer, "show my mini statement")
	h.turn(t, "c1", contractx.RoleCustomer, "SB-001")
	resp := h.turn(t, "c1", contractx.RoleCustomer, "3")
	if !strings.HasPrefix(resp.Text, "Mini statement for SB-001 (last 3):") {
		t.Fatalf("unexpected fallback reply: %q", resp.Text)
	}
	if len(composer.reqs) != 1 {
		t.Fatalf("expected one composer call, got %d", len(composer.reqs))
	}
}

func TestTurnsForSameConversationAreSerialized(t *testing.T) {
	t.Parallel()

	var inflight, peak atomic.Int32
	extractor := &fakeExtractor{hook: func() {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
	}}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.o.HandleTurn(context.Background(), contractx.TurnRequest{
				ConversationID: "shared",
				Role:           contractx.RoleCustomer,
				Text:           "hello",
			})
		}()
	}
	wg.Wait()

	if got := peak.Load(); got != 1 {
		t.Fatalf("expected turns to be serialized, peak concurrency = %d", got)
	}
}

func TestTurnsForDifferentConversationsRunInParallel(t *testing.T) {
	t.Parallel()

	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	var once sync.Once
	extractor := &fakeExtractor{hook: func() {
		arrived.Done()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}}
	h := newHarness(t, &fakeRegistry{extractor: extractor}, nil)

	errs := make(chan error, 2)
	for _, id := range []string{"a", "b"} {
		go func(id string) {
			_, err := h.o.HandleTurn(context.Background(), contractx.TurnRequest{
				ConversationID: id,
				Role:           contractx.RoleCustomer,
				Text:           "hello",
			})
			errs <- err
		}(id)
	}

	done := make(chan struct{})
	go func() {
		arrived.Wait()
		close(done)
	}()
	select {
	case <-done:
		once.Do(func() { close(release) })
	case <-time.After(time.Second):
		t.Fatal("turns for different conversations did not overlap")
	}

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("HandleTurn() error = %v", err)
		}
	}
}

func TestEndForgetsConversation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.turn(t, "c1", contractx.RoleCustomer, "SB-001")

	snap, ok, err := h.o.Memory(context.Background(), "c1")
	if err != nil || !ok || snap["accountId"] != "SB-001" {
		t.Fatalf("Memory() = %#v, %v, %v", snap, ok, err)
	}
	if !h.o.End("c1") {
		t.Fatal("End() = false")
	}
	if _, ok, _ := h.o.Memory(context.Background(), "c1"); ok {
		t.Fatal("conversation still present after End")
	}
}

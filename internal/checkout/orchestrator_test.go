package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lightning-pos/internal/config"
	"lightning-pos/internal/domain"
	"lightning-pos/internal/gateway"

	"go.uber.org/zap"
)

// fakeGateway is a hand-rolled Gateway with a scripted poll sequence and a
// manually fired push path
type fakeGateway struct {
	mu         sync.Mutex
	issueErr   error
	issued     []string // memos, in issuance order
	amounts    []int64
	pollScript []pollStep // consumed one per poll; last step repeats
	pollCalls  int
	callback   func()
}

type pollStep struct {
	settled bool
	err     error
}

func (g *fakeGateway) IssueInvoice(ctx context.Context, amount int64, memo string) (*domain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.issueErr != nil {
		return nil, g.issueErr
	}
	g.issued = append(g.issued, memo)
	g.amounts = append(g.amounts, amount)
	return &domain.Invoice{PaymentRequest: "lnbc-test-invoice", Amount: amount}, nil
}

func (g *fakeGateway) SubscribeSettlement(invoiceID string, onSettled func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = onSettled
}

func (g *fakeGateway) PollSettlement(ctx context.Context, invoiceID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	step := pollStep{}
	if len(g.pollScript) > 0 {
		idx := g.pollCalls
		if idx >= len(g.pollScript) {
			idx = len(g.pollScript) - 1
		}
		step = g.pollScript[idx]
	}
	g.pollCalls++
	return step.settled, step.err
}

func (g *fakeGateway) firePush() {
	g.mu.Lock()
	callback := g.callback
	g.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func (g *fakeGateway) issueCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.issued)
}

// fakeBasket is an in-memory Basket that counts Clear calls
type fakeBasket struct {
	mu         sync.Mutex
	entries    []domain.BasketEntry
	clearCalls int
}

func newFakeBasket(entries ...domain.BasketEntry) *fakeBasket {
	return &fakeBasket{entries: entries}
}

func (b *fakeBasket) Get(ctx context.Context) ([]domain.BasketEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.BasketEntry(nil), b.entries...), nil
}

func (b *fakeBasket) Total(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, entry := range b.entries {
		total += entry.Price * int64(entry.Quantity)
	}
	return total, nil
}

func (b *fakeBasket) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.clearCalls++
	return nil
}

func (b *fakeBasket) clearCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearCalls
}

func (b *fakeBasket) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func coffeeBasket() *fakeBasket {
	return newFakeBasket(domain.BasketEntry{
		Item:     domain.Item{ID: "coffee", Name: "Coffee", Price: 500},
		Quantity: 2,
	})
}

// notifyCounter counts UI-facing success notifications
type notifyCounter struct {
	mu    sync.Mutex
	count int
}

func (n *notifyCounter) callback(*domain.Invoice) {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

func (n *notifyCounter) get() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestEmptyBasketCheckoutIsRejected(t *testing.T) {
	gw := &fakeGateway{}
	basket := newFakeBasket()
	o := New(gw, basket, time.Hour, nil, zap.NewNop())

	_, err := o.Start(context.Background())
	if !errors.Is(err, domain.ErrEmptyBasket) {
		t.Fatalf("expected ErrEmptyBasket, got %v", err)
	}
	if o.State() != StateIdle {
		t.Errorf("expected session to stay Idle, got %s", o.State())
	}
	if gw.issueCount() != 0 {
		t.Error("empty-basket checkout issued an invoice")
	}
}

func TestIssuanceFailureMovesToFailedAndLeavesBasketUntouched(t *testing.T) {
	gw := &fakeGateway{issueErr: domain.ErrGatewayUnavailable}
	basket := coffeeBasket()
	notify := &notifyCounter{}
	o := New(gw, basket, time.Hour, notify.callback, zap.NewNop())

	_, err := o.Start(context.Background())
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if o.State() != StateFailed {
		t.Errorf("expected Failed, got %s", o.State())
	}
	if basket.size() != 1 {
		t.Error("basket was mutated by a failed checkout")
	}
	if basket.clearCount() != 0 {
		t.Error("basket was cleared by a failed checkout")
	}
	if notify.get() != 0 {
		t.Error("failed checkout emitted a success notification")
	}
}

func TestStartIssuesInvoiceForBasketTotalWithMemo(t *testing.T) {
	gw := &fakeGateway{}
	basket := newFakeBasket(
		domain.BasketEntry{Item: domain.Item{ID: "coffee", Name: "Coffee", Price: 500}, Quantity: 2},
		domain.BasketEntry{Item: domain.Item{ID: "tea", Name: "Tea", Price: 300}, Quantity: 1},
	)
	o := New(gw, basket, time.Hour, nil, zap.NewNop())
	defer o.Teardown()

	invoice, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if invoice.Amount != 1300 {
		t.Errorf("expected amount 1300, got %d", invoice.Amount)
	}
	if o.State() != StateAwaitingSettlement {
		t.Errorf("expected AwaitingSettlement, got %s", o.State())
	}
	if got, want := gw.issued[0], "POS Payment: 2x Coffee, 1x Tea"; got != want {
		t.Errorf("memo = %q, want %q", got, want)
	}
}

func TestPushPathSettlesExactlyOnce(t *testing.T) {
	gw := &fakeGateway{} // poll never reports settled
	basket := coffeeBasket()
	notify := &notifyCounter{}
	o := New(gw, basket, time.Hour, notify.callback, zap.NewNop())
	defer o.Teardown()

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	gw.firePush()

	if o.State() != StateSettled {
		t.Fatalf("expected Settled, got %s", o.State())
	}
	if basket.clearCount() != 1 {
		t.Errorf("expected 1 basket clear, got %d", basket.clearCount())
	}
	if notify.get() != 1 {
		t.Errorf("expected 1 notification, got %d", notify.get())
	}

	// A duplicate push and a late poll observation are both no-ops
	gw.firePush()
	o.settle("poll")

	if basket.clearCount() != 1 {
		t.Errorf("settlement acted twice: %d clears", basket.clearCount())
	}
	if notify.get() != 1 {
		t.Errorf("settlement notified twice: %d notifications", notify.get())
	}
}

func TestPollPathSettlesAfterFalseResults(t *testing.T) {
	gw := &fakeGateway{
		pollScript: []pollStep{
			{settled: false},
			{settled: false},
			{settled: false},
			{settled: true},
		},
	}
	basket := coffeeBasket()
	notify := &notifyCounter{}
	o := New(gw, basket, 3*time.Millisecond, notify.callback, zap.NewNop())
	defer o.Teardown()

	invoice, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if invoice.Amount != 1000 {
		t.Errorf("expected invoice for 1000 sats, got %d", invoice.Amount)
	}

	waitFor(t, 2*time.Second, func() bool {
		return o.State() == StateSettled
	}, "poll path never settled")

	if basket.size() != 0 {
		t.Error("basket not empty after settlement")
	}
	if basket.clearCount() != 1 {
		t.Errorf("expected 1 basket clear, got %d", basket.clearCount())
	}
	if notify.get() != 1 {
		t.Errorf("expected 1 notification, got %d", notify.get())
	}

	// A push arriving after the poll already won is a no-op
	gw.firePush()
	if basket.clearCount() != 1 || notify.get() != 1 {
		t.Error("late push acted after poll settlement")
	}
}

func TestPollErrorsAreSwallowedAndPollingContinues(t *testing.T) {
	gw := &fakeGateway{
		pollScript: []pollStep{
			{err: errors.New("transient backend error")},
			{err: errors.New("transient backend error")},
			{settled: true},
		},
	}
	basket := coffeeBasket()
	o := New(gw, basket, 3*time.Millisecond, nil, zap.NewNop())
	defer o.Teardown()

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return o.State() == StateSettled
	}, "polling did not survive transient errors")

	if o.State() == StateFailed {
		t.Error("transient poll error was treated as fatal")
	}
}

func TestTeardownMakesStalePushANoOp(t *testing.T) {
	gw := &fakeGateway{}
	basket := coffeeBasket()
	notify := &notifyCounter{}
	o := New(gw, basket, time.Hour, notify.callback, zap.NewNop())

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	o.Teardown()
	gw.firePush()

	if o.State() == StateSettled {
		t.Error("stale push settled a torn-down session")
	}
	if basket.clearCount() != 0 {
		t.Error("stale push cleared the basket")
	}
	if notify.get() != 0 {
		t.Error("stale push emitted a notification")
	}

	// Teardown is idempotent
	o.Teardown()
}

func TestTeardownStopsPolling(t *testing.T) {
	gw := &fakeGateway{}
	basket := coffeeBasket()
	o := New(gw, basket, 2*time.Millisecond, nil, zap.NewNop())

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.pollCalls > 0
	}, "poll loop never ticked")

	o.Teardown()

	// Give any in-flight tick time to finish, then verify the loop is dead
	time.Sleep(10 * time.Millisecond)
	gw.mu.Lock()
	after := gw.pollCalls
	gw.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	gw.mu.Lock()
	final := gw.pollCalls
	gw.mu.Unlock()

	if final != after {
		t.Errorf("poll loop still ticking after teardown: %d -> %d", after, final)
	}
}

// Wires the orchestrator to the real mock backend so the push callback,
// the poll loop, and the backend's own settlement bookkeeping all run
// concurrently against live invoices. Run with -race.
func TestSettlementAgainstMockGateway(t *testing.T) {
	gw := gateway.NewMockGateway(config.GatewayConfig{
		APIKey:      "test-key",
		Mnemonic:    "test mnemonic",
		SettleDelay: 15 * time.Millisecond,
	}, zap.NewNop())
	basket := coffeeBasket()
	notify := &notifyCounter{}
	o := New(gw, basket, 2*time.Millisecond, notify.callback, zap.NewNop())
	defer o.Teardown()

	invoice, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Hammer the pull path from the outside while the backend settles and
	// the push callback fires
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if _, err := gw.PollSettlement(context.Background(), invoice.PaymentRequest); err != nil {
				t.Errorf("PollSettlement failed: %v", err)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	waitFor(t, 2*time.Second, func() bool {
		return o.State() == StateSettled
	}, "session never settled against the mock backend")
	<-done

	if basket.clearCount() != 1 {
		t.Errorf("expected 1 basket clear, got %d", basket.clearCount())
	}
	if notify.get() != 1 {
		t.Errorf("expected 1 notification, got %d", notify.get())
	}
}

func TestStartTwiceIsRejected(t *testing.T) {
	gw := &fakeGateway{}
	basket := coffeeBasket()
	o := New(gw, basket, time.Hour, nil, zap.NewNop())
	defer o.Teardown()

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartAfterTeardownIsRejected(t *testing.T) {
	gw := &fakeGateway{}
	basket := coffeeBasket()
	o := New(gw, basket, time.Hour, nil, zap.NewNop())

	o.Teardown()
	if _, err := o.Start(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

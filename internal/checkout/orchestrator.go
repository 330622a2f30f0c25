// Package checkout owns the invoice lifecycle for one checkout session:
// issue an invoice for the basket total, race the gateway's push and poll
// settlement paths, and guarantee the settlement transition happens exactly
// once.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lightning-pos/internal/domain"
	"lightning-pos/internal/gateway"

	"go.uber.org/zap"
)

// State is the position of a checkout session in its lifecycle. Sessions
// only move forward; a new checkout always starts a fresh Orchestrator.
type State int

const (
	StateIdle State = iota
	StateInvoiceRequested
	StateAwaitingSettlement
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvoiceRequested:
		return "invoice_requested"
	case StateAwaitingSettlement:
		return "awaiting_settlement"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted = errors.New("checkout session already started")
	ErrSessionClosed  = errors.New("checkout session closed")
)

// Basket is the slice of the basket store the orchestrator needs: a
// snapshot to bill, a total to invoice, and a clear on success.
type Basket interface {
	Get(ctx context.Context) ([]domain.BasketEntry, error)
	Total(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// Orchestrator drives a single checkout session. The state field is the
// sole source of truth for the exactly-once settlement guarantee: both the
// push callback and the poll loop funnel into settle, which check-and-sets
// the state under the mutex, so only the first arrival acts.
type Orchestrator struct {
	gateway      gateway.Gateway
	basket       Basket
	logger       *zap.Logger
	pollInterval time.Duration
	onSettled    func(invoice *domain.Invoice)

	mu         sync.Mutex
	state      State
	closed     bool
	invoice    *domain.Invoice
	cancelPoll context.CancelFunc
}

// New creates an idle checkout session. onSettled, if non-nil, is the
// UI-facing success notification and fires exactly once.
func New(gw gateway.Gateway, basket Basket, pollInterval time.Duration, onSettled func(*domain.Invoice), logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:      gw,
		basket:       basket,
		logger:       logger,
		pollInterval: pollInterval,
		onSettled:    onSettled,
		state:        StateIdle,
	}
}

// Start issues an invoice for the current basket and begins watching for
// settlement on both the push and the poll path. An empty basket is
// rejected with domain.ErrEmptyBasket and the session stays Idle; an
// issuance failure moves the session to Failed.
func (o *Orchestrator) Start(ctx context.Context) (*domain.Invoice, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	o.mu.Unlock()

	entries, err := o.basket.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read basket: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrEmptyBasket
	}

	total, err := o.basket.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to total basket: %w", err)
	}

	o.setState(StateInvoiceRequested)

	invoice, err := o.gateway.IssueInvoice(ctx, total, buildMemo(entries))
	if err != nil {
		o.setState(StateFailed)
		o.logger.Error("Invoice issuance failed",
			zap.Int64("amount", total),
			zap.Error(err),
		)
		return nil, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrSessionClosed
	}
	// Keep a private copy: settle writes the Settled flag under o.mu, and
	// the gateway must never read or write the same struct from its side.
	session := *invoice
	o.invoice = &session
	o.state = StateAwaitingSettlement

	// The poll loop outlives the request that started the checkout; it is
	// cancelled by settlement or teardown, never by the caller's context.
	pollCtx, cancel := context.WithCancel(context.Background())
	o.cancelPoll = cancel
	o.mu.Unlock()

	o.gateway.SubscribeSettlement(invoice.PaymentRequest, func() {
		o.settle("push")
	})
	go o.pollLoop(pollCtx, invoice.PaymentRequest)

	o.logger.Info("Awaiting settlement",
		zap.Int64("amount", invoice.Amount),
		zap.Duration("poll_interval", o.pollInterval),
	)

	return invoice, nil
}

// Teardown destroys the session: the poll loop stops and a push callback
// that fires afterwards is a no-op. Safe to call in any state, repeatedly.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	if o.cancelPoll != nil {
		o.cancelPoll()
	}
}

// State reports the session's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Invoice returns a copy of the session's invoice, or nil before issuance.
func (o *Orchestrator) Invoice() *domain.Invoice {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.invoice == nil {
		return nil
	}
	invoice := *o.invoice
	return &invoice
}

// settle is the single mutation path out of AwaitingSettlement. The first
// caller wins: it cancels polling, clears the basket once, and emits the
// one success notification. Every later call, from either path or after
// teardown, is a no-op.
func (o *Orchestrator) settle(source string) {
	o.mu.Lock()
	if o.closed || o.state != StateAwaitingSettlement {
		o.mu.Unlock()
		return
	}
	o.state = StateSettled
	o.invoice.Settled = true
	invoice := *o.invoice
	if o.cancelPoll != nil {
		o.cancelPoll()
	}
	o.mu.Unlock()

	if err := o.basket.Clear(context.Background()); err != nil {
		o.logger.Error("Failed to clear basket after settlement", zap.Error(err))
	}

	o.logger.Info("Payment settled",
		zap.String("source", source),
		zap.Int64("amount", invoice.Amount),
	)

	if o.onSettled != nil {
		o.onSettled(&invoice)
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context, invoiceID string) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settled, err := o.gateway.PollSettlement(ctx, invoiceID)
			if err != nil {
				// Transient; keep polling at the next tick
				o.logger.Warn("Settlement poll failed", zap.Error(err))
				continue
			}
			if settled {
				o.settle("poll")
				return
			}
		}
	}
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// buildMemo renders the basket snapshot as "POS Payment: 2x Coffee, 1x Tea".
func buildMemo(entries []domain.BasketEntry) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, fmt.Sprintf("%dx %s", entry.Quantity, entry.Name))
	}
	return "POS Payment: " + strings.Join(parts, ", ")
}

package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lightning-pos/internal/config"
	"lightning-pos/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockGateway is a development stand-in for a real Lightning backend. It
// fabricates BOLT11-looking payment requests and settles each invoice
// automatically after a fixed delay, driving both the push and the poll
// observation paths the way a real backend would.
type MockGateway struct {
	cfg    config.GatewayConfig
	logger *zap.Logger

	mu        sync.Mutex
	invoices  map[string]*domain.Invoice
	listeners map[string]func()
}

// NewMockGateway creates a MockGateway. Issuance fails with
// domain.ErrGatewayUnavailable until both the API key and the mnemonic are
// configured, mirroring a backend with missing credentials.
func NewMockGateway(cfg config.GatewayConfig, logger *zap.Logger) *MockGateway {
	return &MockGateway{
		cfg:       cfg,
		logger:    logger,
		invoices:  make(map[string]*domain.Invoice),
		listeners: make(map[string]func()),
	}
}

// IssueInvoice creates a new unsettled invoice and schedules its
// auto-settlement.
func (g *MockGateway) IssueInvoice(ctx context.Context, amount int64, memo string) (*domain.Invoice, error) {
	if g.cfg.APIKey == "" || g.cfg.Mnemonic == "" {
		return nil, fmt.Errorf("missing backend credentials: %w", domain.ErrGatewayUnavailable)
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Salt the payment request so every issuance is globally unique
	salt := strings.ReplaceAll(uuid.New().String(), "-", "")
	paymentRequest := fmt.Sprintf("lnbc%dn1p3xaddz5pp5hhkl5ygdnfvug9yg05l05c9xkd997gzp0q4kg4y20p7vsqj0r6sdqqcqzpgxqyz5vqsp5l2c4uzxjyks0a6vrnss9t44wj82uhtn9scnkcwxf0x420ak800dq9qyyssqc%s", amount, salt)

	invoice := &domain.Invoice{
		PaymentRequest: paymentRequest,
		Amount:         amount,
		Settled:        false,
	}

	g.mu.Lock()
	g.invoices[paymentRequest] = invoice
	g.mu.Unlock()

	g.logger.Info("Invoice issued",
		zap.Int64("amount", amount),
		zap.String("memo", memo),
	)

	time.AfterFunc(g.cfg.SettleDelay, func() {
		g.settle(paymentRequest)
	})

	// The registry entry stays private to the gateway; callers get their
	// own copy and never share memory with the settlement paths.
	out := *invoice
	return &out, nil
}

// SubscribeSettlement registers the one-shot settlement callback, replacing
// any previous subscription for the invoice.
func (g *MockGateway) SubscribeSettlement(invoiceID string, onSettled func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners[invoiceID] = onSettled
}

// PollSettlement reports the invoice's last known settlement state. Unknown
// invoices poll as unsettled.
func (g *MockGateway) PollSettlement(ctx context.Context, invoiceID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	invoice, ok := g.invoices[invoiceID]
	if !ok {
		return false, nil
	}
	return invoice.Settled, nil
}

// settle flips the invoice to settled and fires the live subscription, if
// any, exactly once.
func (g *MockGateway) settle(invoiceID string) {
	g.mu.Lock()
	invoice, ok := g.invoices[invoiceID]
	if !ok || invoice.Settled {
		g.mu.Unlock()
		return
	}
	invoice.Settled = true
	callback := g.listeners[invoiceID]
	delete(g.listeners, invoiceID)
	g.mu.Unlock()

	g.logger.Debug("Invoice settled", zap.Int64("amount", invoice.Amount))

	if callback != nil {
		callback()
	}
}

// Settle marks the invoice settled immediately, bypassing the delay. Used
// by tests to drive the push path deterministically.
func (g *MockGateway) Settle(invoiceID string) {
	g.settle(invoiceID)
}

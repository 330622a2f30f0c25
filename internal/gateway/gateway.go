// Package gateway adapts the Lightning payment backend. The core only
// depends on the Gateway port; the backend itself (wallet, node, settlement
// network) stays behind it.
package gateway

import (
	"context"

	"lightning-pos/internal/domain"
)

// Gateway issues payment requests and exposes two settlement-observation
// mechanisms: a one-shot push callback and an idempotent pull status check.
type Gateway interface {
	// IssueInvoice creates a payment request for amount satoshis with the
	// given memo. Returns domain.ErrInvalidAmount for amount <= 0 and
	// domain.ErrGatewayUnavailable when the backend is unreachable or
	// unconfigured.
	IssueInvoice(ctx context.Context, amount int64, memo string) (*domain.Invoice, error)

	// SubscribeSettlement registers a callback invoked at most once, the
	// moment the backend reports the invoice settled. Registering a second
	// callback for the same invoice replaces the first.
	SubscribeSettlement(invoiceID string, onSettled func())

	// PollSettlement reports the last known settlement state for the
	// invoice. Safe to call repeatedly and concurrently with the push path.
	PollSettlement(ctx context.Context, invoiceID string) (bool, error)
}

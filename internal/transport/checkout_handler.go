package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"lightning-pos/internal/checkout"
	"lightning-pos/internal/domain"
	"lightning-pos/internal/gateway"
	"lightning-pos/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutResponse reports a checkout session's state. PaymentRequest is
// only present once issuance has succeeded; a failed issuance never leaks
// an invoice code.
type CheckoutResponse struct {
	SessionID      string `json:"session_id"`
	State          string `json:"state"`
	Settled        bool   `json:"settled"`
	PaymentRequest string `json:"payment_request,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
}

// CheckoutHandler starts, reports, and tears down checkout sessions. One
// terminal, one basket: starting a new checkout tears down the previous
// live session first.
type CheckoutHandler struct {
	gateway      gateway.Gateway
	basket       checkout.Basket
	pollInterval time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*checkout.Orchestrator
	activeID string
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(gw gateway.Gateway, basket checkout.Basket, pollInterval time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		gateway:      gw,
		basket:       basket,
		pollInterval: pollInterval,
		logger:       logger,
		sessions:     make(map[string]*checkout.Orchestrator),
	}
}

// RegisterRoutes registers checkout routes behind the given rate limiter
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, rateLimiter func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if rateLimiter != nil {
				r.Use(rateLimiter)
			}
			r.Post("/", h.StartCheckout)
		})
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.TeardownSession)
	})
}

// StartCheckout creates a fresh session and issues an invoice for the
// basket total
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()

	session := checkout.New(h.gateway, h.basket, h.pollInterval, func(invoice *domain.Invoice) {
		h.logger.Info("Payment received",
			zap.String("session_id", sessionID),
			zap.Int64("amount", invoice.Amount),
		)
	}, h.logger)

	h.mu.Lock()
	// A live predecessor must not keep polling against the shared basket
	if previous, ok := h.sessions[h.activeID]; ok {
		previous.Teardown()
	}
	h.sessions[sessionID] = session
	h.activeID = sessionID
	h.mu.Unlock()

	invoice, err := session.Start(r.Context())
	if err != nil {
		h.respondCheckoutError(w, sessionID, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, CheckoutResponse{
		SessionID:      sessionID,
		State:          session.State().String(),
		PaymentRequest: invoice.PaymentRequest,
		Amount:         invoice.Amount,
	})
}

// GetSession reports the session's state for the storefront to poll
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	session, ok := h.sessions[id]
	h.mu.Unlock()

	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "checkout session not found")
		return
	}

	resp := CheckoutResponse{
		SessionID: id,
		State:     session.State().String(),
		Settled:   session.State() == checkout.StateSettled,
	}
	if invoice := session.Invoice(); invoice != nil {
		resp.PaymentRequest = invoice.PaymentRequest
		resp.Amount = invoice.Amount
	}

	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// TeardownSession destroys a session; its poll loop stops and any late
// push notification becomes a no-op
func (h *CheckoutHandler) TeardownSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	session, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
		if h.activeID == id {
			h.activeID = ""
		}
	}
	h.mu.Unlock()

	if ok {
		session.Teardown()
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyBasket):
		middleware.RespondWithErrorCode(w, http.StatusBadRequest, "empty_basket", "basket is empty")
	case errors.Is(err, domain.ErrInvalidAmount):
		middleware.RespondWithErrorCode(w, http.StatusBadRequest, "invalid_amount", "invoice amount must be positive")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		middleware.RespondWithErrorCode(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable")
	default:
		h.logger.Error("Checkout failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to start checkout")
	}
}

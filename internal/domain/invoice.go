package domain

// Invoice is a backend-issued payment request. The BOLT11 payment request
// string doubles as the invoice identifier; every issuance produces a new
// one, invoices are never reused.
type Invoice struct {
	PaymentRequest string `json:"payment_request"`
	Amount         int64  `json:"amount"`
	Settled        bool   `json:"settled"`
}

// Package payment adapts external payment gateways to the checkout flow.
package payment

import "context"

// Payment statuses reported by the gateway.
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Order is a payment intent registered with the gateway. Amount is in
// minor currency units.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`

	Notes map[string]string `json:"notes,omitempty"`
}

// Payment is the gateway's authoritative view of a payment.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

// Captured reports whether money has actually moved.
func (p Payment) Captured() bool {
	return p.Status == StatusCaptured || p.Status == StatusCompleted
}

// Gateway is implemented by Razorpay and Fake. Network failures surface as
// domain.ErrGatewayUnavailable.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (Payment, error)
	FetchOrder(ctx context.Context, orderID string) (Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	KeyID() string
}

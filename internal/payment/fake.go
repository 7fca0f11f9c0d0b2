package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"medicos/m/domain"
)

// Fake is an in-memory gateway. Orders are paid with Pay, which returns the
// signature a real checkout would hand back to the client.
type Fake struct {
	secret string

	mu          sync.Mutex
	orders      map[string]Order
	payments    map[string]Payment
	unavailable bool
	latency     time.Duration
}

func NewFake(secret string) *Fake {
	return &Fake{
		secret:   secret,
		orders:   make(map[string]Order),
		payments: make(map[string]Payment),
	}
}

func (f *Fake) KeyID() string { return "rzp_fake" }

func (f *Fake) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error) {
	if err := f.wait(ctx); err != nil {
		return Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := Order{
		ID:       "order_" + shortID(),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   StatusCreated,
	}
	if len(notes) > 0 {
		o.Notes = make(map[string]string, len(notes))
		for k, v := range notes {
			o.Notes[k] = v
		}
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *Fake) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	if err := f.wait(ctx); err != nil {
		return Payment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return Payment{}, fmt.Errorf("payment %s: %w", paymentID, domain.ErrNotFound)
	}
	return p, nil
}

func (f *Fake) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	if err := f.wait(ctx); err != nil {
		return Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return o, nil
}

// SetOrderNotes overwrites the notes stored on an order.
func (f *Fake) SetOrderNotes(orderID string, notes map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[orderID]
	o.Notes = notes
	f.orders[orderID] = o
}

func (f *Fake) VerifySignature(orderID, paymentID, signature string) error {
	return VerifySignature(f.secret, orderID, paymentID, signature)
}

// Pay settles an order with the given status and returns the payment id and
// checkout signature.
func (f *Fake) Pay(orderID, status string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return "", "", fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	p := Payment{
		ID:       "pay_" + shortID(),
		OrderID:  o.ID,
		Status:   status,
		Amount:   o.Amount,
		Currency: o.Currency,
		Method:   "upi",
	}
	f.payments[p.ID] = p
	return p.ID, Sign(f.secret, o.ID, p.ID), nil
}

// SetPayment overwrites the gateway's record of a payment.
func (f *Fake) SetPayment(p Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = p
}

// SetUnavailable makes every call fail as if the gateway were unreachable.
func (f *Fake) SetUnavailable(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = down
}

// SetLatency delays every call, honouring the caller's context.
func (f *Fake) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

func (f *Fake) wait(ctx context.Context) error {
	f.mu.Lock()
	down, latency := f.unavailable, f.latency
	f.mu.Unlock()
	if down {
		return fmt.Errorf("fake gateway down: %w", domain.ErrGatewayUnavailable)
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, ctx.Err())
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return nil
}

func shortID() string {
	return uuid.NewString()[:14]
}

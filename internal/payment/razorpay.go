package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"medicos/m/domain"
)

// Razorpay talks to the live Razorpay API.
type Razorpay struct {
	client  *razorpay.Client
	keyID   string
	secret  string
	timeout time.Duration
}

func NewRazorpay(keyID, secret string, timeout time.Duration) *Razorpay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		client:  razorpay.NewClient(keyID, secret),
		keyID:   keyID,
		secret:  secret,
		timeout: timeout,
	}
}

func (r *Razorpay) KeyID() string { return r.keyID }

func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	body, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.client.Order.Create(data, nil)
	})
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	order := orderFrom(body)
	if order.ID == "" {
		return Order{}, fmt.Errorf("create order: empty order id: %w", domain.ErrGatewayUnavailable)
	}
	return order, nil
}

// FetchOrder reads an order back, including the notes set at creation.
func (r *Razorpay) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	body, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.client.Order.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return Order{}, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	order := orderFrom(body)
	if order.ID == "" {
		return Order{}, fmt.Errorf("fetch order %s: empty order id: %w", orderID, domain.ErrGatewayUnavailable)
	}
	return order, nil
}

func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	body, err := r.call(ctx, func() (map[string]interface{}, error) {
		return r.client.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return Payment{}, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	return Payment{
		ID:       str(body, "id"),
		OrderID:  str(body, "order_id"),
		Status:   str(body, "status"),
		Amount:   minor(body, "amount"),
		Currency: str(body, "currency"),
		Method:   str(body, "method"),
	}, nil
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) error {
	return VerifySignature(r.secret, orderID, paymentID, signature)
}

// call bounds a blocking SDK request by the client timeout and the caller's
// context. The SDK takes no context, so an abandoned request finishes in the
// background and its result is dropped.
func (r *Razorpay) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, res.err)
		}
		return res.body, nil
	}
}

func orderFrom(body map[string]interface{}) Order {
	return Order{
		ID:       str(body, "id"),
		Amount:   minor(body, "amount"),
		Currency: str(body, "currency"),
		Receipt:  str(body, "receipt"),
		Status:   str(body, "status"),
		Notes:    orderNotes(body),
	}
}

// orderNotes reads the order notes. Razorpay sends an empty array when none
// were set.
func orderNotes(body map[string]interface{}) map[string]string {
	raw, ok := body["notes"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			out[k] = v
		case float64:
			out[k] = strconv.FormatInt(int64(v), 10)
		}
	}
	return out
}

func str(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

// minor reads an integer amount. JSON numbers decode as float64.
func minor(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

package payment

import (
	"context"
	"time"

	"medicos/m/internal/metrics"
)

// Instrumented records call latency for every blocking gateway operation.
type Instrumented struct {
	Gateway
	m *metrics.Metrics
}

func NewInstrumented(g Gateway, m *metrics.Metrics) *Instrumented {
	return &Instrumented{Gateway: g, m: m}
}

func (i *Instrumented) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error) {
	start := time.Now()
	o, err := i.Gateway.CreateOrder(ctx, amount, currency, receipt, notes)
	i.observe("create_order", start, err)
	return o, err
}

func (i *Instrumented) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	start := time.Now()
	p, err := i.Gateway.FetchPayment(ctx, paymentID)
	i.observe("fetch_payment", start, err)
	return p, err
}

func (i *Instrumented) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	start := time.Now()
	o, err := i.Gateway.FetchOrder(ctx, orderID)
	i.observe("fetch_order", start, err)
	return o, err
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.m.GatewayDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

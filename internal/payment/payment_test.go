package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicos/m/domain"
	"medicos/m/internal/metrics"
)

const secret = "test_secret"

func TestVerifySignatureRejectsTampering(t *testing.T) {
	sig := Sign(secret, "order_1", "pay_1")
	require.NoError(t, VerifySignature(secret, "order_1", "pay_1", sig))

	cases := map[string][3]string{
		"order id":   {"order_2", "pay_1", sig},
		"payment id": {"order_1", "pay_2", sig},
		"signature":  {"order_1", "pay_1", Sign(secret, "order_1", "pay_2")},
		"not hex":    {"order_1", "pay_1", "zz" + sig[2:]},
		"truncated":  {"order_1", "pay_1", sig[:len(sig)-2]},
		"empty":      {"order_1", "pay_1", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			err := VerifySignature(secret, c[0], c[1], c[2])
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}

	assert.ErrorIs(t, VerifySignature("other", "order_1", "pay_1", sig), domain.ErrInvalidSignature)
}

func TestFakeOrderPayFetch(t *testing.T) {
	f := NewFake(secret)
	ctx := context.Background()

	o, err := f.CreateOrder(ctx, 1200, "INR", "rcpt_1", map[string]string{"medicine_id": "7", "quantity": "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), o.Amount)

	fetched, err := f.FetchOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"medicine_id": "7", "quantity": "2"}, fetched.Notes)
	_, err = f.FetchOrder(ctx, "order_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	payID, sig, err := f.Pay(o.ID, StatusCaptured)
	require.NoError(t, err)
	require.NoError(t, f.VerifySignature(o.ID, payID, sig))

	p, err := f.FetchPayment(ctx, payID)
	require.NoError(t, err)
	assert.True(t, p.Captured())
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, int64(1200), p.Amount)

	_, err = f.FetchPayment(ctx, "pay_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = f.Pay("order_missing", StatusCaptured)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFakeFailsClosed(t *testing.T) {
	f := NewFake(secret)
	f.SetUnavailable(true)
	_, err := f.CreateOrder(context.Background(), 100, "INR", "r", nil)
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	f.SetUnavailable(false)
	f.SetLatency(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.FetchPayment(ctx, "pay_1")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestRazorpayCallTimesOut(t *testing.T) {
	r := NewRazorpay("rzp_test", secret, 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	_, err := r.call(context.Background(), func() (map[string]interface{}, error) {
		<-release
		return nil, nil
	})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.call(ctx, func() (map[string]interface{}, error) {
		t.Error("request issued with a cancelled context")
		return nil, nil
	})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	_, err = r.call(context.Background(), func() (map[string]interface{}, error) {
		return nil, errors.New("401 unauthorized")
	})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestRazorpayBodyParsing(t *testing.T) {
	body := map[string]interface{}{"id": "pay_1", "amount": float64(1500), "status": "captured"}
	assert.Equal(t, "pay_1", str(body, "id"))
	assert.Equal(t, int64(1500), minor(body, "amount"))
	assert.Equal(t, "", str(body, "order_id"))
	assert.Equal(t, int64(0), minor(body, "missing"))

	order := orderFrom(map[string]interface{}{
		"id":     "order_1",
		"amount": float64(500),
		"notes":  map[string]interface{}{"medicine_id": "3", "quantity": float64(2)},
	})
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, map[string]string{"medicine_id": "3", "quantity": "2"}, order.Notes)
	assert.Nil(t, orderFrom(map[string]interface{}{"id": "order_2", "notes": []interface{}{}}).Notes)
}

func TestInstrumentedObservesCalls(t *testing.T) {
	m := metrics.New()
	f := NewFake(secret)
	g := NewInstrumented(f, m)

	_, err := g.CreateOrder(context.Background(), 100, "INR", "r", nil)
	require.NoError(t, err)
	_, err = g.FetchPayment(context.Background(), "pay_missing")
	require.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.GatewayDuration))
	assert.Equal(t, "rzp_fake", g.KeyID())
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersExposed(t *testing.T) {
	m := New()
	m.CheckoutOutcomes.WithLabelValues("gateway", "committed").Inc()
	m.Reconciliations.WithLabelValues("insufficient_stock").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutOutcomes.WithLabelValues("gateway", "committed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("insufficient_stock")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos_payment_reconciliations_total")
}

func TestNewIsIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

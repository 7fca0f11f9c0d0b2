package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/chatbot"
	"medicos/m/internal/checkout"
	"medicos/m/internal/database/databasetest"
	"medicos/m/internal/inventory"
	"medicos/m/internal/ledger"
	"medicos/m/internal/metrics"
	"medicos/m/internal/payment"
	"medicos/m/internal/users"
)

type stubReceipts struct {
	mu   sync.Mutex
	sent []domain.Sale
	err  error
}

func (s *stubReceipts) Send(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sale)
	return nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	gateway  *payment.Fake
	receipts *stubReceipts
	medicine int64
	admin    string
	staff    string
}

func newTestServer(t *testing.T) *testServer {
	db := databasetest.New(t)
	m := metrics.New()
	gw := payment.NewFake("api_secret")
	inv := inventory.New(db)
	led := ledger.New(db)
	us := users.New(db)
	ctx := context.Background()

	require.NoError(t, us.Create(ctx, &domain.User{Username: "admin", FullName: "Admin", Email: "admin@medicos.com", Role: domain.RoleAdmin}, "admin123"))
	require.NoError(t, us.Create(ctx, &domain.User{Username: "staff1", FullName: "John Smith", Email: "john@medicos.com", Role: domain.RoleStaff}, "staff123"))

	receipts := &stubReceipts{}
	h := New(Deps{
		Secret:    "jwt_secret",
		Inventory: inv,
		Ledger:    led,
		Checkout:  checkout.New(db, inv, led, gw, nil, m, "INR"),
		Receipts:  receipts,
		Users:     us,
		Chatbot:   chatbot.New(zap.NewNop()),
		Metrics:   m,
		Logger:    zap.NewNop(),
		Simulator: gw,
	})
	s := &testServer{
		t:        t,
		handler:  h.Router(),
		gateway:  gw,
		receipts: receipts,
		medicine: databasetest.InsertMedicine(t, db, "BATCH001", 10, 250, "2099-12-31"),
	}
	s.admin = s.login("admin", "admin123")
	s.staff = s.login("staff1", "staff123")
	return s
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp authResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/medicines", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "staff1", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodGet, "/auth/me", s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[domain.User](t, rec)
	assert.Equal(t, "staff1", me.Username)
	assert.Equal(t, domain.RoleStaff, me.Role)
	assert.Empty(t, me.Password)
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	med := medicineRequest{Name: "Cetirizine 10mg", BatchNumber: "BATCH005", ExpiryDate: "2099-01-01", QuantityAvailable: 40, UnitPrice: 300}

	rec := s.do(http.MethodPost, "/medicines", s.staff, med)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/medicines", s.admin, med)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Medicine](t, rec)
	assert.True(t, created.IsActive)

	rec = s.do(http.MethodPost, "/medicines", s.admin, med)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_batch", decode[errorResponse](t, rec).Code)

	bad := med
	bad.BatchNumber = "BATCH006"
	bad.ExpiryDate = "31/12/2099"
	rec = s.do(http.MethodPost, "/medicines", s.admin, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/staff", s.admin, staffRequest{Username: "staff2", Password: "pw", FullName: "Sarah", Email: "sarah@medicos.com"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/auth/staff", s.staff, staffRequest{Username: "staff3", Password: "pw", FullName: "X", Email: "x@medicos.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMedicineLifecycle(t *testing.T) {
	s := newTestServer(t)
	path := "/medicines/" + itoa(s.medicine)

	rec := s.do(http.MethodPost, path+"/stock", s.admin, map[string]int64{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(15), decode[domain.Medicine](t, rec).QuantityAvailable)

	rec = s.do(http.MethodPost, path+"/stock", s.admin, map[string]int64{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/medicines/available", s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Medicine](t, rec), 1)

	rec = s.do(http.MethodDelete, path, s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/medicines/available", s.staff, nil)
	assert.Empty(t, decode[[]domain.Medicine](t, rec))

	rec = s.do(http.MethodGet, "/medicines/abc", s.staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/medicines/999", s.staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCashSaleAndInsufficientStock(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/sales", s.staff, saleRequest{MedicineID: s.medicine, QuantitySold: 10, CustomerName: "Ravi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[saleResponse](t, rec)
	assert.Equal(t, checkout.StateCommitted, resp.State)
	assert.Equal(t, int64(2500), resp.Sale.TotalAmount)

	rec = s.do(http.MethodPost, "/sales", s.staff, saleRequest{MedicineID: s.medicine, QuantitySold: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/sales", s.admin, saleRequest{MedicineID: s.medicine, QuantitySold: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/sales", s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Sale](t, rec), 1)

	rec = s.do(http.MethodGet, "/dashboard/stats", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["sales_today"])
	assert.Equal(t, float64(2500), stats["revenue_today"])
	assert.Equal(t, float64(1), stats["low_stock"])
}

func TestGatewayCheckoutOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/payment/order", s.staff, orderRequest{MedicineID: s.medicine, Quantity: 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderResponse](t, rec)
	assert.Equal(t, int64(1000), order.Amount)
	assert.Equal(t, checkout.StateAwaitingPayment, order.State)

	rec = s.do(http.MethodPost, "/payment/simulate/"+order.OrderID, s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decode[map[string]string](t, rec)

	verify := verifyRequest{
		PaymentID:     paid["payment_id"],
		OrderID:       order.OrderID,
		Signature:     paid["signature"],
		MedicineID:    s.medicine,
		QuantitySold:  4,
		CustomerPhone: "9876543210",
	}
	tampered := verify
	tampered.Signature = strings.Repeat("0", 64)
	rec = s.do(http.MethodPost, "/payment/verify", s.staff, tampered)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signature", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/payment/verify", s.staff, verify)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[saleResponse](t, rec)
	assert.Equal(t, checkout.StateCommitted, first.State)

	rec = s.do(http.MethodPost, "/payment/verify", s.staff, verify)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[saleResponse](t, rec)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Sale.ID, again.Sale.ID)

	rec = s.do(http.MethodPost, "/sales/"+itoa(first.Sale.ID)+"/receipt", s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, s.receipts.sent, 1)
	assert.Equal(t, "9876543210", s.receipts.sent[0].CustomerPhone)

	s.receipts.err = domain.ErrDeliveryFailed
	rec = s.do(http.MethodPost, "/sales/"+itoa(first.Sale.ID)+"/receipt", s.staff, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGatewayFailuresMapToStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/payment/order", s.staff, orderRequest{MedicineID: s.medicine, Quantity: 10})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[orderResponse](t, rec)

	rec = s.do(http.MethodPost, "/payment/simulate/"+order.OrderID, s.staff, map[string]string{"status": payment.StatusFailed})
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decode[map[string]string](t, rec)
	rec = s.do(http.MethodPost, "/payment/verify", s.staff, verifyRequest{
		PaymentID: failed["payment_id"], OrderID: order.OrderID, Signature: failed["signature"],
		MedicineID: s.medicine, QuantitySold: 10,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = s.do(http.MethodPost, "/payment/simulate/"+order.OrderID, s.staff, nil)
	paid := decode[map[string]string](t, rec)
	verify := verifyRequest{
		PaymentID: paid["payment_id"], OrderID: order.OrderID, Signature: paid["signature"],
		MedicineID: s.medicine, QuantitySold: 10,
	}

	s.gateway.SetUnavailable(true)
	rec = s.do(http.MethodPost, "/payment/verify", s.staff, verify)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decode[errorResponse](t, rec).Retryable)
	s.gateway.SetUnavailable(false)

	// stock sold at the counter while the customer was paying
	rec = s.do(http.MethodPost, "/sales", s.staff, saleRequest{MedicineID: s.medicine, QuantitySold: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/payment/verify", s.staff, verify)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "reconciliation_required", body.Code)
	assert.True(t, body.Reconciliation)
	assert.Equal(t, paid["payment_id"], body.PaymentID)

	rec = s.do(http.MethodGet, "/payment/exceptions", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PaymentException](t, rec), 1)
	rec = s.do(http.MethodGet, "/payment/exceptions", s.staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/chat", s.staff, map[string]string{"message": "side effects of omeprazole"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[chatbot.Reply](t, rec)
	assert.Equal(t, "knowledge_base", reply.Source)

	rec = s.do(http.MethodPost, "/chat", s.staff, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestStaffUpdateAndDeactivation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/sales", s.staff, saleRequest{MedicineID: s.medicine, QuantitySold: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	staffID := decode[domain.User](t, s.do(http.MethodGet, "/auth/me", s.staff, nil)).ID
	path := "/auth/staff/" + itoa(staffID)

	rec = s.do(http.MethodPut, path, s.staff, map[string]string{"position": "Manager"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, path, s.admin, map[string]string{"position": "Senior Pharmacist"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.User](t, rec)
	assert.Equal(t, "Senior Pharmacist", updated.Position)
	assert.Equal(t, "John Smith", updated.FullName)

	rec = s.do(http.MethodPut, "/auth/staff/999", s.admin, map[string]string{"position": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, path, s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodDelete, path, s.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "staff1", "password": "staff123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// sales made before the account was closed are still reported
	rec = s.do(http.MethodGet, "/sales?sold_by="+itoa(staffID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[[]domain.Sale](t, rec)
	require.Len(t, sales, 1)
	assert.Equal(t, staffID, sales[0].SoldBy)

	rec = s.do(http.MethodPut, path, s.admin, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, s.login("staff1", "staff123"))
}

func TestReceiptResendIsLimitedToSeller(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/auth/staff", s.admin, staffRequest{Username: "staff2", Password: "pw2", FullName: "Sarah", Email: "sarah@medicos.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	other := s.login("staff2", "pw2")

	rec = s.do(http.MethodPost, "/sales", s.staff, saleRequest{MedicineID: s.medicine, QuantitySold: 1, CustomerPhone: "9876543210"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sale := decode[saleResponse](t, rec).Sale
	path := "/sales/" + itoa(sale.ID) + "/receipt"

	rec = s.do(http.MethodPost, path, other, map[string]string{"customer_phone": "9000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.receipts.sent)

	rec = s.do(http.MethodPost, path, s.staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.receipts.sent, 1)
	assert.Equal(t, "9876543210", s.receipts.sent[0].CustomerPhone)
}

// Package checkout turns a customer's intent to buy into exactly one
// committed sale, or none.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/database"
	"medicos/m/internal/inventory"
	"medicos/m/internal/ledger"
	"medicos/m/internal/logging"
	"medicos/m/internal/metrics"
	"medicos/m/internal/payment"
)

// Order notes that pin a gateway order to the sale line it was priced for.
const (
	noteMedicineID = "medicine_id"
	noteQuantity   = "quantity"
)

const (
	flowOrder  = "order"
	flowVerify = "verify"
	flowDirect = "direct"
)

// Receipts is notified of every committed sale.
type Receipts interface {
	Dispatch(sale domain.Sale)
}

type noReceipts struct{}

func (noReceipts) Dispatch(domain.Sale) {}

type Service struct {
	db        *sqlx.DB
	inventory *inventory.Store
	ledger    *ledger.Ledger
	gateway   payment.Gateway
	receipts  Receipts
	metrics   *metrics.Metrics
	currency  string
	tracer    trace.Tracer
}

func New(db *sqlx.DB, inv *inventory.Store, led *ledger.Ledger, gw payment.Gateway, receipts Receipts, m *metrics.Metrics, currency string) *Service {
	if receipts == nil {
		receipts = noReceipts{}
	}
	return &Service{
		db:        db,
		inventory: inv,
		ledger:    led,
		gateway:   gw,
		receipts:  receipts,
		metrics:   m,
		currency:  currency,
		tracer:    otel.Tracer("medicos/checkout"),
	}
}

type OrderRequest struct {
	MedicineID    int64
	Quantity      int64
	CustomerName  string
	CustomerPhone string
}

type OrderResult struct {
	State        State
	Order        payment.Order
	KeyID        string
	MedicineName string
	UnitPrice    int64
}

// CreateOrder prices the requested quantity and registers a payment intent
// with the gateway. The stock check here does not hold anything; the binding
// check happens when the payment is verified.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (_ *OrderResult, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CreateOrder", trace.WithAttributes(
		attribute.Int64("medicine.id", req.MedicineID),
		attribute.Int64("sale.quantity", req.Quantity),
	))
	outcome := "rejected"
	defer func() { s.finish(ctx, span, flowOrder, outcome, err) }()

	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	m, err := s.inventory.Get(ctx, req.MedicineID)
	if err != nil {
		return nil, err
	}
	if err := sellable(m, req.Quantity, s.inventory.Today()); err != nil {
		return nil, err
	}

	amount := req.Quantity * m.UnitPrice
	notes := map[string]string{
		noteMedicineID: strconv.FormatInt(m.ID, 10),
		noteQuantity:   strconv.FormatInt(req.Quantity, 10),
	}
	if req.CustomerName != "" {
		notes["customer_name"] = req.CustomerName
	}
	order, err := s.gateway.CreateOrder(ctx, amount, s.currency, "rcpt_"+uuid.NewString()[:8], notes)
	if err != nil {
		outcome = "gateway_unavailable"
		return nil, unavailable(err)
	}

	outcome = string(StateAwaitingPayment)
	span.SetAttributes(attribute.String("payment.order_id", order.ID))
	return &OrderResult{
		State:        StateAwaitingPayment,
		Order:        order,
		KeyID:        s.gateway.KeyID(),
		MedicineName: m.Name,
		UnitPrice:    m.UnitPrice,
	}, nil
}

type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string

	MedicineID    int64
	Quantity      int64
	CustomerName  string
	CustomerPhone string
	DoctorName    string
	SoldBy        int64
}

// Result carries the terminal state of a sale attempt. It is returned
// alongside errors too, so callers can tell Rejected from still Verifying.
type Result struct {
	State     State
	Sale      *domain.Sale
	Duplicate bool
}

// Verify confirms a gateway payment and commits the sale. Re-verifying an
// order that already has a sale returns that sale without touching stock.
// The medicine and quantity must be the ones the order was created for.
// Once the gateway reports the payment captured, any failure to commit is
// returned as a *ReconciliationError and logged for manual resolution.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (_ *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Verify", trace.WithAttributes(
		attribute.String("payment.order_id", req.OrderID),
		attribute.String("payment.id", req.PaymentID),
		attribute.Int64("medicine.id", req.MedicineID),
	))
	outcome := "rejected"
	defer func() { s.finish(ctx, span, flowVerify, outcome, err) }()
	rejected := &Result{State: StateRejected}

	if err := s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		return rejected, err
	}

	existing, err := s.ledger.FindByOrderID(ctx, s.db, req.OrderID)
	switch {
	case err == nil:
		outcome = "duplicate"
		span.AddEvent("checkout.idempotent_replay", trace.WithAttributes(attribute.Int64("sale.id", existing.ID)))
		return &Result{State: StateCommitted, Sale: existing, Duplicate: true}, nil
	case !errors.Is(err, domain.ErrNotFound):
		outcome = "error"
		return &Result{State: StateVerifying}, err
	}

	if err := validateSale(req.MedicineID, req.Quantity, req.SoldBy); err != nil {
		return rejected, err
	}

	p, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if errors.Is(err, domain.ErrNotFound) {
		return rejected, fmt.Errorf("payment %s unknown to gateway: %w", req.PaymentID, domain.ErrPaymentNotCaptured)
	}
	if err != nil {
		outcome = "gateway_unavailable"
		return &Result{State: StateVerifying}, unavailable(err)
	}
	if p.OrderID != req.OrderID {
		return rejected, fmt.Errorf("payment %s belongs to order %q: %w", p.ID, p.OrderID, domain.ErrPaymentNotCaptured)
	}
	if !p.Captured() {
		return rejected, fmt.Errorf("payment %s status %q: %w", p.ID, p.Status, domain.ErrPaymentNotCaptured)
	}

	order, err := s.gateway.FetchOrder(ctx, req.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return rejected, fmt.Errorf("order %s unknown to gateway: %w", req.OrderID, domain.ErrPaymentNotCaptured)
	}
	if err != nil {
		outcome = "gateway_unavailable"
		return &Result{State: StateVerifying}, unavailable(err)
	}
	if err := matchOrder(order, req.MedicineID, req.Quantity); err != nil {
		return rejected, err
	}

	orderID, paymentID := req.OrderID, req.PaymentID
	sale := &domain.Sale{
		MedicineID:    req.MedicineID,
		QuantitySold:  req.Quantity,
		Currency:      s.currency,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DoctorName:    req.DoctorName,
		SoldBy:        req.SoldBy,
		PaymentID:     &paymentID,
		OrderID:       &orderID,
		PaymentStatus: domain.PaymentCompleted,
		PaymentMethod: domain.MethodRazorpay,
	}

	// Money has moved. The commit must not be abandoned with the request.
	commitCtx := context.WithoutCancel(ctx)
	err = database.WithTx(commitCtx, s.db, func(tx *sqlx.Tx) error {
		prior, err := s.ledger.FindByOrderID(commitCtx, tx, req.OrderID)
		if err == nil {
			existing = prior
			return domain.ErrDuplicateOrder
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		res, err := s.inventory.Reserve(commitCtx, tx, req.MedicineID, req.Quantity)
		if err != nil {
			return err
		}
		fill(sale, res)
		if sale.TotalAmount != p.Amount || !strings.EqualFold(sale.Currency, p.Currency) {
			return fmt.Errorf("sale total %d %s, captured %d %s: %w",
				sale.TotalAmount, sale.Currency, p.Amount, p.Currency, errAmountMismatch)
		}
		_, err = s.ledger.Record(commitCtx, tx, sale)
		return err
	})

	if errors.Is(err, domain.ErrDuplicateOrder) {
		if existing == nil {
			// lost a race on the unique order id; the winner's row is committed
			existing, err = s.ledger.FindByOrderID(commitCtx, s.db, req.OrderID)
			if err != nil {
				outcome = "error"
				return &Result{State: StateVerifying}, err
			}
		}
		outcome = "duplicate"
		return &Result{State: StateCommitted, Sale: existing, Duplicate: true}, nil
	}
	if err != nil {
		outcome = "reconciliation"
		return rejected, s.reconcile(commitCtx, req, p, err)
	}

	outcome = string(StateCommitted)
	span.SetAttributes(attribute.Int64("sale.id", sale.ID))
	s.receipts.Dispatch(*sale)
	return &Result{State: StateCommitted, Sale: sale}, nil
}

type SaleRequest struct {
	MedicineID    int64
	Quantity      int64
	CustomerName  string
	CustomerPhone string
	DoctorName    string
	SoldBy        int64
}

// DirectSale records a cash counter sale.
func (s *Service) DirectSale(ctx context.Context, req SaleRequest) (_ *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.DirectSale", trace.WithAttributes(
		attribute.Int64("medicine.id", req.MedicineID),
		attribute.Int64("sale.quantity", req.Quantity),
	))
	outcome := "rejected"
	defer func() { s.finish(ctx, span, flowDirect, outcome, err) }()
	rejected := &Result{State: StateRejected}

	if err := validateSale(req.MedicineID, req.Quantity, req.SoldBy); err != nil {
		return rejected, err
	}
	sale := &domain.Sale{
		MedicineID:    req.MedicineID,
		QuantitySold:  req.Quantity,
		Currency:      s.currency,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DoctorName:    req.DoctorName,
		SoldBy:        req.SoldBy,
		PaymentStatus: domain.PaymentCompleted,
		PaymentMethod: domain.MethodCash,
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := s.inventory.Reserve(ctx, tx, req.MedicineID, req.Quantity)
		if err != nil {
			return err
		}
		fill(sale, res)
		_, err = s.ledger.Record(ctx, tx, sale)
		return err
	})
	if err != nil {
		return rejected, err
	}

	outcome = string(StateCommitted)
	span.SetAttributes(attribute.Int64("sale.id", sale.ID))
	s.receipts.Dispatch(*sale)
	return &Result{State: StateCommitted, Sale: sale}, nil
}

func (s *Service) reconcile(ctx context.Context, req VerifyRequest, p payment.Payment, cause error) error {
	rerr := &ReconciliationError{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Reason:    reason(cause),
		Err:       cause,
	}
	log := logging.FromContext(ctx).With(
		zap.String("order_id", rerr.OrderID),
		zap.String("payment_id", rerr.PaymentID),
		zap.Int64("amount", rerr.Amount),
		zap.String("currency", rerr.Currency),
		zap.String("reason", rerr.Reason),
	)
	exc := &domain.PaymentException{
		OrderID:   rerr.OrderID,
		PaymentID: rerr.PaymentID,
		Reason:    rerr.Reason + ": " + cause.Error(),
		Amount:    rerr.Amount,
		Currency:  rerr.Currency,
	}
	if err := s.ledger.RecordException(ctx, exc); err != nil {
		log.Error("payment_exception_not_stored", zap.Error(err))
	}
	s.metrics.Reconciliations.WithLabelValues(rerr.Reason).Inc()
	log.Error("payment_requires_reconciliation", zap.Error(cause))
	return rerr
}

func (s *Service) finish(ctx context.Context, span trace.Span, flow, outcome string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, outcome)
	}
	span.End()

	s.metrics.CheckoutOutcomes.WithLabelValues(flow, outcome).Inc()

	fields := []zap.Field{zap.String("flow", flow), zap.String("outcome", outcome)}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	log := logging.FromContext(ctx)
	if err != nil {
		log.Warn("checkout_done", append(fields, zap.Error(err))...)
		return
	}
	log.Info("checkout_done", fields...)
}

func sellable(m *domain.Medicine, qty int64, today string) error {
	switch {
	case !m.IsActive:
		return fmt.Errorf("medicine %d: %w", m.ID, domain.ErrNotFound)
	case m.ExpiryDate <= today:
		return fmt.Errorf("medicine %d expired on %s: %w", m.ID, m.ExpiryDate, domain.ErrMedicineExpired)
	case m.QuantityAvailable < qty:
		return fmt.Errorf("medicine %d has %d units, %d requested: %w", m.ID, m.QuantityAvailable, qty, domain.ErrInsufficientStock)
	}
	return nil
}

// matchOrder checks the sale line against the one the order was created for.
func matchOrder(o payment.Order, medicineID, qty int64) error {
	orderedMedicine, err1 := strconv.ParseInt(o.Notes[noteMedicineID], 10, 64)
	orderedQty, err2 := strconv.ParseInt(o.Notes[noteQuantity], 10, 64)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("order %s carries no sale line: %w", o.ID, domain.ErrValidation)
	}
	if orderedMedicine != medicineID || orderedQty != qty {
		return fmt.Errorf("order %s was placed for %d of medicine %d, not %d of medicine %d: %w",
			o.ID, orderedQty, orderedMedicine, qty, medicineID, domain.ErrValidation)
	}
	return nil
}

func validateSale(medicineID, qty, soldBy int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if medicineID <= 0 {
		return fmt.Errorf("medicine_id is required: %w", domain.ErrValidation)
	}
	if soldBy <= 0 {
		return fmt.Errorf("sold_by is required: %w", domain.ErrValidation)
	}
	return nil
}

func fill(sale *domain.Sale, res inventory.Reservation) {
	sale.MedicineName = res.Name
	sale.BatchNumber = res.BatchNumber
	sale.UnitPrice = res.UnitPrice
	sale.TotalAmount = res.UnitPrice * sale.QuantitySold
}

func unavailable(err error) error {
	if errors.Is(err, domain.ErrGatewayUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}

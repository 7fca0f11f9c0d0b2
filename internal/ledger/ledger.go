package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"medicos/m/domain"
	"medicos/m/internal/database"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

const saleColumns = `s.id, s.medicine_id, m.name AS medicine_name, m.batch_number, s.quantity_sold, s.unit_price,
	s.total_amount, s.currency, s.customer_name, s.customer_phone, s.doctor_name, s.sold_by, s.payment_id,
	s.order_id, s.payment_status, s.payment_method, s.created_at`

// Ledger is the append-only record of completed sales. It exposes no update
// or delete.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Record appends a sale using q, which is normally the transaction that
// decremented stock for it. A second sale for the same gateway order id
// fails with ErrDuplicateOrder.
func (l *Ledger) Record(ctx context.Context, q sqlx.ExtContext, sale *domain.Sale) (int64, error) {
	if sale.QuantitySold <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if sale.CreatedAt == "" {
		sale.CreatedAt = l.now().UTC().Format(time.RFC3339)
	}
	err := sqlx.GetContext(ctx, q, &sale.ID, q.Rebind(`INSERT INTO sales (medicine_id, quantity_sold, unit_price,
		total_amount, currency, customer_name, customer_phone, doctor_name, sold_by, payment_id, order_id,
		payment_status, payment_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		sale.MedicineID, sale.QuantitySold, sale.UnitPrice, sale.TotalAmount, sale.Currency, sale.CustomerName,
		sale.CustomerPhone, sale.DoctorName, sale.SoldBy, sale.PaymentID, sale.OrderID, sale.PaymentStatus,
		sale.PaymentMethod, sale.CreatedAt)
	if database.IsUniqueViolation(err) {
		return 0, fmt.Errorf("order %s: %w", deref(sale.OrderID), domain.ErrDuplicateOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return sale.ID, nil
}

// Get loads one sale joined with its medicine name.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Sale, error) {
	return l.getWhere(ctx, l.db, "s.id = ?", id)
}

// FindByOrderID returns the sale committed for a gateway order, or ErrNotFound.
func (l *Ledger) FindByOrderID(ctx context.Context, q sqlx.ExtContext, orderID string) (*domain.Sale, error) {
	return l.getWhere(ctx, q, "s.order_id = ?", orderID)
}

func (l *Ledger) getWhere(ctx context.Context, q sqlx.ExtContext, clause string, arg any) (*domain.Sale, error) {
	var sale domain.Sale
	err := sqlx.GetContext(ctx, q, &sale, q.Rebind(`SELECT `+saleColumns+`
		FROM sales s JOIN medicines m ON m.id = s.medicine_id WHERE `+clause), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &sale, nil
}

// Filter narrows List. Dates are inclusive YYYY-MM-DD bounds.
type Filter struct {
	SoldBy     int64
	MedicineID int64
	From       string
	To         string
	Limit      int
}

// List returns sales newest first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]domain.Sale, error) {
	var (
		clauses []string
		args    []any
	)
	if f.SoldBy > 0 {
		clauses = append(clauses, "s.sold_by = ?")
		args = append(args, f.SoldBy)
	}
	if f.MedicineID > 0 {
		clauses = append(clauses, "s.medicine_id = ?")
		args = append(args, f.MedicineID)
	}
	if f.From != "" {
		clauses = append(clauses, "s.created_at >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		to, err := nextDay(f.To)
		if err != nil {
			return nil, fmt.Errorf("to date: %w", domain.ErrValidation)
		}
		clauses = append(clauses, "s.created_at < ?")
		args = append(args, to)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := `SELECT ` + saleColumns + ` FROM sales s JOIN medicines m ON m.id = s.medicine_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY s.created_at DESC, s.id DESC LIMIT %d", limit)

	sales := []domain.Sale{}
	if err := l.db.SelectContext(ctx, &sales, l.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

type Totals struct {
	SalesCount int64 `db:"sales_count" json:"sales_today"`
	Revenue    int64 `db:"revenue" json:"revenue_today"`
}

// Today is the current UTC date in ledger format.
func (l *Ledger) Today() string {
	return l.now().UTC().Format("2006-01-02")
}

// DailyTotals sums the completed sales of one UTC day.
func (l *Ledger) DailyTotals(ctx context.Context, day string) (Totals, error) {
	var t Totals
	end, err := nextDay(day)
	if err != nil {
		return t, fmt.Errorf("day: %w", domain.ErrValidation)
	}
	err = l.db.GetContext(ctx, &t, l.db.Rebind(`SELECT COUNT(*) AS sales_count, COALESCE(SUM(total_amount), 0) AS revenue
		FROM sales WHERE payment_status = 'completed' AND created_at >= ? AND created_at < ?`), day, end)
	if err != nil {
		return t, fmt.Errorf("daily totals: %w", err)
	}
	return t, nil
}

// RecordException logs a captured payment that has no sale.
func (l *Ledger) RecordException(ctx context.Context, exc *domain.PaymentException) error {
	if exc.CreatedAt == "" {
		exc.CreatedAt = l.now().UTC().Format(time.RFC3339)
	}
	err := l.db.QueryRowxContext(ctx, l.db.Rebind(`INSERT INTO payment_exceptions (order_id, payment_id, reason, amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		exc.OrderID, exc.PaymentID, exc.Reason, exc.Amount, exc.Currency, exc.CreatedAt).Scan(&exc.ID)
	if err != nil {
		return fmt.Errorf("insert payment exception: %w", err)
	}
	return nil
}

func (l *Ledger) ListExceptions(ctx context.Context) ([]domain.PaymentException, error) {
	out := []domain.PaymentException{}
	err := l.db.SelectContext(ctx, &out, `SELECT id, order_id, payment_id, reason, amount, currency, created_at
		FROM payment_exceptions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payment exceptions: %w", err)
	}
	return out, nil
}

func nextDay(day string) (string, error) {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"medicos/m/domain"
	"medicos/m/internal/database"
)

const (
	DateLayout = "2006-01-02"

	LowStockThreshold = 50
	ExpiryWindowDays  = 30
)

const medicineColumns = `id, name, batch_number, expiry_date, date_of_purchase, quantity_available, unit_price,
	manufacturer, category, description, is_active, created_by, created_at, updated_at`

// Store owns the medicines table. Stock only ever leaves through Reserve.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the time source used for expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Today is the current UTC date used for expiry comparisons.
func (s *Store) Today() string {
	return s.now().UTC().Format(DateLayout)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Reservation is the medicine snapshot taken by a successful Reserve.
type Reservation struct {
	MedicineID  int64  `db:"id"`
	Name        string `db:"name"`
	BatchNumber string `db:"batch_number"`
	UnitPrice   int64  `db:"unit_price"`
	Remaining   int64  `db:"quantity_available"`
}

// Reserve atomically takes qty units of a medicine. The decrement is a single
// conditional UPDATE, so concurrent callers can never drive stock below zero.
// On failure nothing is mutated and the error is one of ErrNotFound,
// ErrMedicineExpired or ErrInsufficientStock. Pass the caller's transaction
// as q to bind the decrement to it.
func (s *Store) Reserve(ctx context.Context, q sqlx.ExtContext, medicineID, qty int64) (Reservation, error) {
	var r Reservation
	if qty <= 0 {
		return r, domain.ErrInvalidQuantity
	}
	today := s.Today()
	err := sqlx.GetContext(ctx, q, &r, q.Rebind(`UPDATE medicines
		SET quantity_available = quantity_available - ?, updated_at = ?
		WHERE id = ? AND is_active = TRUE AND quantity_available >= ? AND expiry_date > ?
		RETURNING id, name, batch_number, unit_price, quantity_available`),
		qty, s.timestamp(), medicineID, qty, today)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("reserve medicine %d: %w", medicineID, err)
	}
	return r, s.classify(ctx, q, medicineID, qty, today)
}

func (s *Store) classify(ctx context.Context, q sqlx.ExtContext, medicineID, qty int64, today string) error {
	var row struct {
		IsActive  bool   `db:"is_active"`
		Available int64  `db:"quantity_available"`
		Expiry    string `db:"expiry_date"`
	}
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT is_active, quantity_available, expiry_date FROM medicines WHERE id = ?`), medicineID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !row.IsActive) {
		return fmt.Errorf("medicine %d: %w", medicineID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load medicine %d: %w", medicineID, err)
	}
	if row.Expiry <= today {
		return fmt.Errorf("medicine %d expired on %s: %w", medicineID, row.Expiry, domain.ErrMedicineExpired)
	}
	return fmt.Errorf("medicine %d has %d units, %d requested: %w", medicineID, row.Available, qty, domain.ErrInsufficientStock)
}

// Create inserts a new batch. Batch numbers are unique.
func (s *Store) Create(ctx context.Context, m *domain.Medicine) error {
	ts := s.timestamp()
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO medicines (name, batch_number, expiry_date, date_of_purchase,
		quantity_available, unit_price, manufacturer, category, description, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?, ?) RETURNING id`),
		m.Name, m.BatchNumber, m.ExpiryDate, m.DateOfPurchase, m.QuantityAvailable, m.UnitPrice,
		m.Manufacturer, m.Category, m.Description, m.CreatedBy, ts, ts).Scan(&m.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("batch %s: %w", m.BatchNumber, domain.ErrDuplicateBatch)
	}
	if err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	m.IsActive = true
	m.CreatedAt, m.UpdatedAt = ts, ts
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.GetContext(ctx, &m, s.db.Rebind(`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medicine %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get medicine %d: %w", id, err)
	}
	return &m, nil
}

// List returns every active batch, newest first.
func (s *Store) List(ctx context.Context, includeInactive bool) ([]domain.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	medicines := []domain.Medicine{}
	if err := s.db.SelectContext(ctx, &medicines, query); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicines, nil
}

// ListAvailable returns the batches a staff member may sell today.
func (s *Store) ListAvailable(ctx context.Context) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	err := s.db.SelectContext(ctx, &medicines, s.db.Rebind(`SELECT `+medicineColumns+` FROM medicines
		WHERE is_active = TRUE AND quantity_available > 0 AND expiry_date > ?
		ORDER BY name, id`), s.Today())
	if err != nil {
		return nil, fmt.Errorf("list available medicines: %w", err)
	}
	return medicines, nil
}

// Update overwrites the editable fields of a batch, including a stock-take
// correction of quantity_available.
func (s *Store) Update(ctx context.Context, m *domain.Medicine) error {
	ts := s.timestamp()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE medicines
		SET name = ?, batch_number = ?, expiry_date = ?, date_of_purchase = ?, quantity_available = ?,
		    unit_price = ?, manufacturer = ?, category = ?, description = ?, updated_at = ?
		WHERE id = ? AND is_active = TRUE`),
		m.Name, m.BatchNumber, m.ExpiryDate, m.DateOfPurchase, m.QuantityAvailable, m.UnitPrice,
		m.Manufacturer, m.Category, m.Description, ts, m.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("batch %s: %w", m.BatchNumber, domain.ErrDuplicateBatch)
	}
	if err != nil {
		return fmt.Errorf("update medicine %d: %w", m.ID, err)
	}
	return requireRow(res, m.ID)
}

// Restock adds received units to a batch.
func (s *Store) Restock(ctx context.Context, id, qty int64) (*domain.Medicine, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE medicines
		SET quantity_available = quantity_available + ?, updated_at = ?
		WHERE id = ? AND is_active = TRUE`), qty, s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("restock medicine %d: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate soft-deletes a batch. Sales keep referencing the row.
func (s *Store) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE medicines SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND is_active = TRUE`), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("deactivate medicine %d: %w", id, err)
	}
	return requireRow(res, id)
}

type Stats struct {
	TotalMedicines int64 `db:"total_medicines" json:"total_medicines"`
	LowStock       int64 `db:"low_stock" json:"low_stock"`
	ExpiringSoon   int64 `db:"expiring_soon" json:"expiring_soon"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	horizon := s.now().UTC().AddDate(0, 0, ExpiryWindowDays).Format(DateLayout)
	err := s.db.GetContext(ctx, &st, s.db.Rebind(`SELECT
		COUNT(*) AS total_medicines,
		COALESCE(SUM(CASE WHEN quantity_available < ? THEN 1 ELSE 0 END), 0) AS low_stock,
		COALESCE(SUM(CASE WHEN expiry_date <= ? THEN 1 ELSE 0 END), 0) AS expiring_soon
		FROM medicines WHERE is_active = TRUE`), LowStockThreshold, horizon)
	if err != nil {
		return st, fmt.Errorf("medicine stats: %w", err)
	}
	return st, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("medicine %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

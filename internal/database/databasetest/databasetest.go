// Package databasetest provides migrated in-memory databases for tests.
package databasetest

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"medicos/m/internal/database"
	"medicos/m/internal/migrations"
)

// New returns a fresh, migrated in-memory SQLite database closed at test end.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Connect("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

// InsertStaff creates a staff member and returns its id.
func InsertStaff(t testing.TB, db *sqlx.DB, username string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(db.Rebind(`INSERT INTO staff (username, password, full_name, email, position, hire_date)
		VALUES (?, 'x', ?, ?, 'Pharmacist', '2024-01-01') RETURNING id`),
		username, username, username+"@medicos.test").Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertMedicine creates an active batch and returns its id.
func InsertMedicine(t testing.TB, db *sqlx.DB, batch string, qty, unitPrice int64, expiry string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(db.Rebind(`INSERT INTO medicines (name, batch_number, expiry_date, quantity_available, unit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z') RETURNING id`),
		"Paracetamol 500mg", batch, expiry, qty, unitPrice).Scan(&id)
	require.NoError(t, err)
	return id
}

// Quantity reads the current stock of a medicine.
func Quantity(t testing.TB, db *sqlx.DB, medicineID int64) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, db.Get(&qty, db.Rebind(`SELECT quantity_available FROM medicines WHERE id = ?`), medicineID))
	return qty
}

// SaleCount counts ledger rows.
func SaleCount(t testing.TB, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sales`))
	return n
}

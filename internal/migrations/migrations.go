package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the POS backend. The
// statement set is chosen from the connection's driver name.
func Run(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS admins (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            last_login TEXT,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS staff (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            position TEXT NOT NULL,
            hire_date TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            last_login TEXT,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            batch_number TEXT NOT NULL UNIQUE,
            expiry_date TEXT NOT NULL,
            date_of_purchase TEXT NOT NULL DEFAULT '',
            quantity_available INTEGER NOT NULL DEFAULT 0 CHECK (quantity_available >= 0),
            unit_price INTEGER NOT NULL CHECK (unit_price >= 0),
            manufacturer TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_by INTEGER,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            FOREIGN KEY(created_by) REFERENCES admins(id)
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            quantity_sold INTEGER NOT NULL CHECK (quantity_sold > 0),
            unit_price INTEGER NOT NULL,
            total_amount INTEGER NOT NULL,
            currency TEXT NOT NULL,
            customer_name TEXT NOT NULL DEFAULT '',
            customer_phone TEXT NOT NULL DEFAULT '',
            doctor_name TEXT NOT NULL DEFAULT '',
            sold_by INTEGER NOT NULL,
            payment_id TEXT,
            order_id TEXT UNIQUE,
            payment_status TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending', 'completed', 'failed')),
            payment_method TEXT NOT NULL,
            created_at TEXT NOT NULL,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id),
            FOREIGN KEY(sold_by) REFERENCES staff(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);`,
	`CREATE TABLE IF NOT EXISTS payment_exceptions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id TEXT NOT NULL,
            payment_id TEXT NOT NULL,
            reason TEXT NOT NULL,
            amount INTEGER NOT NULL,
            currency TEXT NOT NULL,
            created_at TEXT NOT NULL
        );`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS admins (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_login TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS staff (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            position TEXT NOT NULL,
            hire_date TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_login TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            batch_number TEXT NOT NULL UNIQUE,
            expiry_date TEXT NOT NULL,
            date_of_purchase TEXT NOT NULL DEFAULT '',
            quantity_available BIGINT NOT NULL DEFAULT 0 CHECK (quantity_available >= 0),
            unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
            manufacturer TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_by INTEGER REFERENCES admins(id),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id SERIAL PRIMARY KEY,
            medicine_id INTEGER NOT NULL REFERENCES medicines(id),
            quantity_sold BIGINT NOT NULL CHECK (quantity_sold > 0),
            unit_price BIGINT NOT NULL,
            total_amount BIGINT NOT NULL,
            currency TEXT NOT NULL,
            customer_name TEXT NOT NULL DEFAULT '',
            customer_phone TEXT NOT NULL DEFAULT '',
            doctor_name TEXT NOT NULL DEFAULT '',
            sold_by INTEGER NOT NULL REFERENCES staff(id),
            payment_id TEXT,
            order_id TEXT UNIQUE,
            payment_status TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending', 'completed', 'failed')),
            payment_method TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);`,
	`CREATE TABLE IF NOT EXISTS payment_exceptions (
            id SERIAL PRIMARY KEY,
            order_id TEXT NOT NULL,
            payment_id TEXT NOT NULL,
            reason TEXT NOT NULL,
            amount BIGINT NOT NULL,
            currency TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );`,
}

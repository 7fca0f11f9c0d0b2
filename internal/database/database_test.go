package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicos/m/internal/database"
	"medicos/m/internal/database/databasetest"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	db := databasetest.New(t)
	boom := errors.New("boom")

	err := database.WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO payment_exceptions (order_id, payment_id, reason, amount, currency, created_at)
			VALUES ('o', 'p', 'r', 1, 'INR', 'now')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM payment_exceptions`))
	assert.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	db := databasetest.New(t)
	err := database.WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO payment_exceptions (order_id, payment_id, reason, amount, currency, created_at)
			VALUES ('o', 'p', 'r', 1, 'INR', 'now')`)
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM payment_exceptions`))
	assert.Equal(t, 1, n)
}

func TestIsUniqueViolation(t *testing.T) {
	db := databasetest.New(t)
	databasetest.InsertStaff(t, db, "asha")

	_, err := db.Exec(`INSERT INTO staff (username, password, full_name, email, position, hire_date)
		VALUES ('asha', 'x', 'Asha', 'other@medicos.test', 'Pharmacist', '2024-01-01')`)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsUniqueViolation(errors.New("plain")))
}

package checkout

import (
	"errors"
	"fmt"

	"medicos/m/domain"
)

var errAmountMismatch = errors.New("captured amount does not match sale total")

// ReconciliationError reports money captured at the gateway with no sale
// recorded for it. It matches domain.ErrReconciliationRequired and the
// underlying cause under errors.Is.
type ReconciliationError struct {
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
	Reason    string
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment %s on order %s captured %d %s but no sale was recorded (%s): %v",
		e.PaymentID, e.OrderID, e.Amount, e.Currency, e.Reason, e.Err)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{domain.ErrReconciliationRequired, e.Err}
}

// reason maps a commit failure onto a short label for logs and metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrMedicineExpired):
		return "medicine_expired"
	case errors.Is(err, domain.ErrNotFound):
		return "medicine_not_found"
	case errors.Is(err, errAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrValidation):
		return "invalid_sale"
	default:
		return "database"
	}
}

package domain

import "errors"

var (
	ErrValidation             = errors.New("invalid request")
	ErrNotFound               = errors.New("not found")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrMedicineExpired        = errors.New("medicine expired")
	ErrDuplicateBatch         = errors.New("batch number already exists")
	ErrDuplicateOrder         = errors.New("order already recorded")
	ErrInvalidSignature       = errors.New("payment signature verification failed")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrPaymentNotCaptured     = errors.New("payment not captured")
	ErrReconciliationRequired = errors.New("payment captured but sale could not be recorded")
	ErrDeliveryFailed         = errors.New("receipt delivery failed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrDuplicateUser          = errors.New("username or email already exists")
)

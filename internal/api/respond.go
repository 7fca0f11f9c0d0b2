package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/checkout"
	"medicos/m/internal/logging"
)

type errorResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	Retryable      bool   `json:"retryable,omitempty"`
	Reconciliation bool   `json:"reconciliation,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{domain.ErrInvalidSignature, http.StatusBadRequest, "invalid_signature"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrPaymentNotCaptured, http.StatusPaymentRequired, "payment_not_captured"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{domain.ErrMedicineExpired, http.StatusConflict, "medicine_expired"},
	{domain.ErrDuplicateBatch, http.StatusConflict, "duplicate_batch"},
	{domain.ErrDuplicateUser, http.StatusConflict, "duplicate_user"},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed"},
	{domain.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
}

// writeError maps a domain error onto its HTTP status. Unknown errors are
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var rerr *checkout.ReconciliationError
	if errors.As(err, &rerr) {
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:          "payment was captured but the sale could not be recorded; it has been logged for reconciliation",
			Code:           "reconciliation_required",
			Reconciliation: true,
			OrderID:        rerr.OrderID,
			PaymentID:      rerr.PaymentID,
		})
		return
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			log.Debug("request_rejected", zap.String("code", k.code), zap.Error(err))
			respondJSON(w, k.status, errorResponse{
				Error:     err.Error(),
				Code:      k.code,
				Retryable: k.status == http.StatusServiceUnavailable,
			})
			return
		}
	}
	log.Error("request_failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("malformed body: %v: %w", err, domain.ErrValidation)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %w", domain.ErrValidation)
	}
	return id, nil
}

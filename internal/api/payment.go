package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"medicos/m/domain"
	"medicos/m/internal/checkout"
	"medicos/m/internal/payment"
)

type orderRequest struct {
	MedicineID    int64  `json:"medicine_id"`
	Quantity      int64  `json:"quantity"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

type orderResponse struct {
	State        checkout.State `json:"state"`
	OrderID      string         `json:"order_id"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	Receipt      string         `json:"receipt"`
	KeyID        string         `json:"key_id"`
	MedicineName string         `json:"medicine_name"`
	UnitPrice    int64          `json:"unit_price"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MedicineID <= 0 {
		writeError(w, r, fmt.Errorf("medicine_id is required: %w", domain.ErrValidation))
		return
	}
	res, err := h.Checkout.CreateOrder(r.Context(), checkout.OrderRequest{
		MedicineID:    req.MedicineID,
		Quantity:      req.Quantity,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderResponse{
		State:        res.State,
		OrderID:      res.Order.ID,
		Amount:       res.Order.Amount,
		Currency:     res.Order.Currency,
		Receipt:      res.Order.Receipt,
		KeyID:        res.KeyID,
		MedicineName: res.MedicineName,
		UnitPrice:    res.UnitPrice,
	})
}

type verifyRequest struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	Signature     string `json:"signature"`
	MedicineID    int64  `json:"medicine_id"`
	QuantitySold  int64  `json:"quantity_sold"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	DoctorName    string `json:"doctor_name"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	staffID, _ := currentUser(r)
	res, err := h.Checkout.Verify(r.Context(), checkout.VerifyRequest{
		OrderID:       strings.TrimSpace(req.OrderID),
		PaymentID:     strings.TrimSpace(req.PaymentID),
		Signature:     strings.TrimSpace(req.Signature),
		MedicineID:    req.MedicineID,
		Quantity:      req.QuantitySold,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		DoctorName:    strings.TrimSpace(req.DoctorName),
		SoldBy:        staffID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, saleResponse{State: res.State, Duplicate: res.Duplicate, Sale: res.Sale})
}

func (h *Handler) listExceptions(w http.ResponseWriter, r *http.Request) {
	exceptions, err := h.Ledger.ListExceptions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, exceptions)
}

// simulatePayment settles an order on the in-memory gateway, standing in for
// the hosted checkout page during local development.
func (h *Handler) simulatePayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if payload.Status == "" {
		payload.Status = payment.StatusCaptured
	}
	paymentID, signature, err := h.Simulator.Pay(chi.URLParam(r, "orderID"), payload.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"order_id":   chi.URLParam(r, "orderID"),
		"payment_id": paymentID,
		"signature":  signature,
	})
}

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"medicos/m/domain"
	"medicos/m/internal/checkout"
	"medicos/m/internal/ledger"
)

type saleRequest struct {
	MedicineID    int64  `json:"medicine_id"`
	QuantitySold  int64  `json:"quantity_sold"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	DoctorName    string `json:"doctor_name"`
}

type saleResponse struct {
	State     checkout.State `json:"state"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Sale      *domain.Sale   `json:"sale"`
}

// createSale records a cash counter sale.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	staffID, _ := currentUser(r)
	res, err := h.Checkout.DirectSale(r.Context(), checkout.SaleRequest{
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
	respondJSON(w, http.StatusCreated, saleResponse{State: res.State, Sale: res.Sale})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{From: q.Get("from"), To: q.Get("to")}
	var err error
	if f.MedicineID, err = optionalInt(q.Get("medicine_id")); err != nil {
		writeError(w, r, err)
		return
	}
	if f.SoldBy, err = optionalInt(q.Get("sold_by")); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Limit = int(limit)

	// staff only see their own sales
	if id, role := currentUser(r); role == domain.RoleStaff {
		f.SoldBy = id
	}
	sales, err := h.Ledger.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sale, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if uid, role := currentUser(r); role == domain.RoleStaff && sale.SoldBy != uid {
		writeError(w, r, fmt.Errorf("sale %d: %w", id, domain.ErrNotFound))
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// resendReceipt retries receipt delivery for a committed sale.
func (h *Handler) resendReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sale, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if uid, role := currentUser(r); role == domain.RoleStaff && sale.SoldBy != uid {
		writeError(w, r, fmt.Errorf("sale %d: %w", id, domain.ErrNotFound))
		return
	}
	var payload struct {
		CustomerPhone string `json:"customer_phone"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if p := strings.TrimSpace(payload.CustomerPhone); p != "" {
		sale.CustomerPhone = p
	}
	if err := h.Receipts.Send(r.Context(), *sale); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "sent", "sale_id": sale.ID})
}

func optionalInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a valid number: %w", v, domain.ErrValidation)
	}
	return n, nil
}

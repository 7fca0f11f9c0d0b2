package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"medicos/m/domain"
	"medicos/m/internal/inventory"
)

type medicineRequest struct {
	Name              string `json:"name"`
	BatchNumber       string `json:"batch_number"`
	ExpiryDate        string `json:"expiry_date"`
	DateOfPurchase    string `json:"date_of_purchase"`
	QuantityAvailable int64  `json:"quantity_available"`
	UnitPrice         int64  `json:"unit_price"`
	Manufacturer      string `json:"manufacturer"`
	Category          string `json:"category"`
	Description       string `json:"description"`
}

func (req medicineRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.BatchNumber) == "" {
		return fmt.Errorf("name and batch_number are required: %w", domain.ErrValidation)
	}
	if _, err := time.Parse(inventory.DateLayout, req.ExpiryDate); err != nil {
		return fmt.Errorf("expiry_date must be YYYY-MM-DD: %w", domain.ErrValidation)
	}
	if req.DateOfPurchase != "" {
		if _, err := time.Parse(inventory.DateLayout, req.DateOfPurchase); err != nil {
			return fmt.Errorf("date_of_purchase must be YYYY-MM-DD: %w", domain.ErrValidation)
		}
	}
	if req.QuantityAvailable < 0 || req.UnitPrice < 0 {
		return fmt.Errorf("quantity_available and unit_price must not be negative: %w", domain.ErrValidation)
	}
	return nil
}

func (req medicineRequest) apply(m *domain.Medicine) {
	m.Name = strings.TrimSpace(req.Name)
	m.BatchNumber = strings.TrimSpace(req.BatchNumber)
	m.ExpiryDate = req.ExpiryDate
	m.DateOfPurchase = req.DateOfPurchase
	m.QuantityAvailable = req.QuantityAvailable
	m.UnitPrice = req.UnitPrice
	m.Manufacturer = req.Manufacturer
	m.Category = req.Category
	m.Description = req.Description
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	_, role := currentUser(r)
	includeInactive := role == domain.RoleAdmin && r.URL.Query().Get("include_inactive") == "true"
	medicines, err := h.Inventory.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := medicines[:0]
		for _, m := range medicines {
			if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.BatchNumber), q) {
				filtered = append(filtered, m)
			}
		}
		medicines = filtered
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) availableMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.Inventory.ListAvailable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}
	adminID, _ := currentUser(r)
	m := &domain.Medicine{CreatedBy: &adminID}
	req.apply(m)
	if err := h.Inventory.Create(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(m)
	if err := h.Inventory.Update(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Inventory.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) restockMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Inventory.Restock(r.Context(), id, payload.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

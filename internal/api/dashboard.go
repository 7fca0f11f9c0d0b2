package api

import (
	"fmt"
	"net/http"

	"medicos/m/domain"
	"medicos/m/internal/inventory"
	"medicos/m/internal/ledger"
)

type dashboardStats struct {
	inventory.Stats
	ledger.Totals
	Date string `json:"date"`
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stock, err := h.Inventory.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	day := h.Ledger.Today()
	totals, err := h.Ledger.DailyTotals(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboardStats{Stats: stock, Totals: totals, Date: day})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.Chatbot.Reply(r.Context(), payload.Message)
	if err != nil {
		writeError(w, r, fmt.Errorf("%v: %w", err, domain.ErrValidation))
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

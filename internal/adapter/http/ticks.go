package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adpilot/internal/adapter/usecase"
)

// The tick endpoints let operators and cron jobs drive the control
// loops out of band. Ticks are idempotent: running one twice in a row
// changes nothing the first run did not already decide.

func (h *Handler) handleTickBudget(w http.ResponseWriter, r *http.Request) {
	h.scheduler.TickBudget(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]string{"tick": "budget"})
}

func (h *Handler) handleTickOptimization(w http.ResponseWriter, r *http.Request) {
	h.scheduler.TickOptimization(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]string{"tick": "optimization"})
}

func (h *Handler) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.budget.Summary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

type adjustBudgetRequest struct {
	BudgetDaily int64 `json:"budget_daily_cents"`
	BudgetTotal int64 `json:"budget_total_cents"`
}

type adjustBudgetResponse struct {
	Campaign campaignResponse `json:"campaign"`
	Decision usecase.Decision `json:"decision"`
}

// handleAdjustBudget changes the campaign's budget limits. A halted
// campaign stays halted after an adjustment; resuming is its own call.
func (h *Handler) handleAdjustBudget(w http.ResponseWriter, r *http.Request) {
	var req adjustBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	c, d, err := h.budget.Adjust(r.Context(), chi.URLParam(r, "id"), req.BudgetDaily, req.BudgetTotal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, adjustBudgetResponse{
		Campaign: toCampaignResponse(c),
		Decision: d,
	})
}

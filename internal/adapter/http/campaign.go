package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"adpilot/internal/adapter/usecase"
	"adpilot/internal/core/domain"
)

type createCampaignRequest struct {
	Name        string          `json:"name"`
	Platform    domain.Platform `json:"platform"`
	Objective   string          `json:"objective"`
	ProductName string          `json:"product_name"`
	Audience    domain.Audience `json:"audience"`
	BudgetDaily int64           `json:"budget_daily_cents"`
	BudgetTotal int64           `json:"budget_total_cents"`
}

type campaignResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Platform        domain.Platform `json:"platform"`
	Objective       string          `json:"objective"`
	ProductName     string          `json:"product_name"`
	Audience        domain.Audience `json:"audience"`
	BudgetDaily     int64           `json:"budget_daily_cents"`
	BudgetTotal     int64           `json:"budget_total_cents"`
	Status          domain.Status   `json:"status"`
	MetaCampaignID  string          `json:"meta_campaign_id,omitempty"`
	GoogleCampaign  string          `json:"google_campaign_id,omitempty"`
	RegenAttempts   int             `json:"regen_attempts"`
	LastOptimizedAt *time.Time      `json:"last_optimized_at,omitempty"`
	HaltedAt        *time.Time      `json:"halted_at,omitempty"`
	Archived        bool            `json:"archived"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:              c.ID,
		Name:            c.Name,
		Platform:        c.Platform,
		Objective:       c.Objective,
		ProductName:     c.ProductName,
		Audience:        c.Audience,
		BudgetDaily:     c.BudgetDaily,
		BudgetTotal:     c.BudgetTotal,
		Status:          c.Status,
		MetaCampaignID:  c.MetaCampaignID,
		GoogleCampaign:  c.GoogleCampaignID,
		RegenAttempts:   c.RegenAttempts,
		LastOptimizedAt: c.LastOptimizedAt,
		HaltedAt:        c.HaltedAt,
		Archived:        c.Archived,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	c := &domain.Campaign{
		Name:        req.Name,
		Platform:    req.Platform,
		Objective:   req.Objective,
		ProductName: req.ProductName,
		Audience:    req.Audience,
		BudgetDaily: req.BudgetDaily,
		BudgetTotal: req.BudgetTotal,
	}
	if err := h.orch.Create(r.Context(), c); err != nil {
		if errors.Is(err, usecase.ErrInvalidState) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCampaignResponse(c))
}

func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.orch.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]campaignResponse, 0, len(campaigns))
	for i := range campaigns {
		out = append(out, toCampaignResponse(&campaigns[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.orch.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

// handleAdvance runs one workflow step. A campaign blocked on a human
// decision answers 202 with its unchanged state.
func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	c, err := h.orch.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, usecase.ErrAwaitingApproval) {
			h.writeJSON(w, http.StatusAccepted, toCampaignResponse(c))
			return
		}
		// A failed campaign is a committed outcome, not a server error.
		if c != nil && c.Status == domain.StatusFailed {
			h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
			return
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	c, err := h.orch.Pause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	c, err := h.orch.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (h *Handler) handleArchiveCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.optimizer.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleForceOptimize(w http.ResponseWriter, r *http.Request) {
	record, err := h.optimizer.ForceOptimize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if record == nil {
		http.Error(w, "campaign is not running", http.StatusConflict)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adpilot/internal/core/domain"
)

type respondApprovalRequest struct {
	Approve bool   `json:"approve"`
	Actor   string `json:"actor"`
	Notes   string `json:"notes"`
}

type respondApprovalResponse struct {
	Approval *domain.Approval  `json:"approval"`
	Campaign *campaignResponse `json:"campaign,omitempty"`
}

// handleRespondApproval decides a pending approval request. A request
// already decided answers 409; the decision is applied exactly once no
// matter how many clients race on it.
func (h *Handler) handleRespondApproval(w http.ResponseWriter, r *http.Request) {
	var req respondApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}
	approval, campaign, err := h.approvals.Resolve(r.Context(),
		chi.URLParam(r, "id"), req.Approve, req.Actor, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := respondApprovalResponse{Approval: approval}
	if campaign != nil {
		cr := toCampaignResponse(campaign)
		resp.Campaign = &cr
	}
	h.writeJSON(w, http.StatusOK, resp)
}

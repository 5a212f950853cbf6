package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adpilot/internal/adapter/usecase"
	"adpilot/internal/core/domain"
)

// Handler is the inbound HTTP adapter. It holds the use-case services
// and a logger, and registers every route on a chi.Router.
type Handler struct {
	orch      *usecase.Orchestrator
	approvals *usecase.Approvals
	budget    *usecase.BudgetController
	optimizer *usecase.Optimizer
	scheduler *usecase.Scheduler
	logger    *slog.Logger
	router    chi.Router
}

// NewHandler creates a handler with all routes configured.
func NewHandler(orch *usecase.Orchestrator, approvals *usecase.Approvals,
	budget *usecase.BudgetController, optimizer *usecase.Optimizer,
	scheduler *usecase.Scheduler, logger *slog.Logger,
) *Handler {
	h := &Handler{
		orch:      orch,
		approvals: approvals,
		budget:    budget,
		optimizer: optimizer,
		scheduler: scheduler,
		logger:    logger,
	}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.handleCreateCampaign)
			r.Get("/", h.handleListCampaigns)
			r.Get("/{id}", h.handleGetCampaign)
			r.Delete("/{id}", h.handleArchiveCampaign)
			r.Post("/{id}/advance", h.handleAdvance)
			r.Post("/{id}/pause", h.handlePause)
			r.Post("/{id}/resume", h.handleResume)
			r.Post("/{id}/force-optimize", h.handleForceOptimize)
			r.Get("/{id}/performance", h.handlePerformance)
		})
		r.Post("/approvals/{id}/respond", h.handleRespondApproval)
		r.Post("/ticks/budget", h.handleTickBudget)
		r.Post("/ticks/optimization", h.handleTickOptimization)
		r.Get("/budgets/summary", h.handleBudgetSummary)
		r.Post("/budgets/{id}/adjust", h.handleAdjustBudget)
	})
	r.Get("/health", h.handleHealth)

	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps use-case errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCampaignNotFound):
		http.Error(w, "campaign not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyDecided):
		http.Error(w, "approval already decided", http.StatusConflict)
	case errors.Is(err, domain.ErrNoPendingApproval):
		http.Error(w, "no pending approval", http.StatusNotFound)
	case errors.Is(err, domain.ErrHalted):
		http.Error(w, "campaign halted by budget controller", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"adpilot/internal/config/configs"
	"adpilot/internal/core/port"
)

// Scheduler drives the two control loops: a fast budget loop and a
// slower metrics+optimization loop. Each tick fans out over the running
// campaigns with bounded concurrency so a large fleet cannot stampede
// the platform APIs. Ticks are also callable directly, which is how the
// HTTP trigger surface and the tests drive them.
type Scheduler struct {
	store     port.Store
	budget    *BudgetController
	optimizer *Optimizer
	budgetCfg configs.Budget
	optCfg    configs.Optimizer
	log       *slog.Logger
}

func NewScheduler(store port.Store, budget *BudgetController, optimizer *Optimizer,
	budgetCfg configs.Budget, optCfg configs.Optimizer, log *slog.Logger,
) *Scheduler {
	return &Scheduler{
		store:     store,
		budget:    budget,
		optimizer: optimizer,
		budgetCfg: budgetCfg,
		optCfg:    optCfg,
		log:       log,
	}
}

// Run blocks, firing ticks until the context is cancelled. The budget
// loop runs more often than the optimization loop; a halt decided by the
// budget loop wins over any optimization in flight because both go
// through the per-campaign lock.
func (s *Scheduler) Run(ctx context.Context) {
	budgetTicker := time.NewTicker(s.budgetCfg.CheckInterval)
	optTicker := time.NewTicker(s.optCfg.TickInterval)
	defer budgetTicker.Stop()
	defer optTicker.Stop()

	s.log.Info("scheduler started",
		"budget_interval", s.budgetCfg.CheckInterval, "optimization_interval", s.optCfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-budgetTicker.C:
			s.TickBudget(ctx)
		case <-optTicker.C:
			s.TickOptimization(ctx)
		}
	}
}

// TickBudget evaluates budgets for every running campaign once.
func (s *Scheduler) TickBudget(ctx context.Context) {
	s.fanOut(ctx, "budget", func(ctx context.Context, campaignID string) error {
		c, err := s.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		_, err = s.budget.Check(ctx, c)
		return err
	})
}

// TickOptimization collects fresh metrics and evaluates KPIs for every
// running campaign once. Metrics land first so the optimizer sees the
// window it is judging.
func (s *Scheduler) TickOptimization(ctx context.Context) {
	s.fanOut(ctx, "optimization", func(ctx context.Context, campaignID string) error {
		c, err := s.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := s.optimizer.CollectMetrics(ctx, c); err != nil {
			s.log.Error("metrics collection failed", "campaign_id", campaignID, "error", err)
			// Stale metrics are still worth evaluating against.
		}
		_, err = s.optimizer.Evaluate(ctx, campaignID)
		return err
	})
}

// fanOut runs fn for each running campaign with bounded parallelism.
// One campaign's failure never blocks the rest of the fleet.
func (s *Scheduler) fanOut(ctx context.Context, loop string, fn func(ctx context.Context, campaignID string) error) {
	campaigns, err := s.store.ListRunning(ctx)
	if err != nil {
		s.log.Error("list running campaigns", "loop", loop, "error", err)
		return
	}
	if len(campaigns) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.optCfg.MaxConcurrentEvaluations)
	for i := range campaigns {
		id := campaigns[i].ID
		g.Go(func() error {
			if err := fn(gctx, id); err != nil {
				s.log.Error("control tick failed", "loop", loop, "campaign_id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	s.log.Debug("control tick complete", "loop", loop, "campaigns", len(campaigns))
}

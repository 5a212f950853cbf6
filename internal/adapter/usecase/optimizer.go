package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"adpilot/internal/config/configs"
	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// Optimizer watches KPIs for running campaigns and applies corrective
// change sets through the update executor. Every evaluation is recorded,
// no-ops included, so the audit trail shows the optimizer was looking
// even when it chose to do nothing.
type Optimizer struct {
	store    port.Store
	orch     *Orchestrator
	executor port.Executor // the update executor
	metrics  port.Executor // the metrics collector
	cfg      configs.Optimizer
	locks    *CampaignLocks
	log      *slog.Logger
}

func NewOptimizer(store port.Store, orch *Orchestrator, update, metrics port.Executor,
	cfg configs.Optimizer, locks *CampaignLocks, log *slog.Logger,
) *Optimizer {
	return &Optimizer{
		store:    store,
		orch:     orch,
		executor: update,
		metrics:  metrics,
		cfg:      cfg,
		locks:    locks,
		log:      log,
	}
}

// Thresholds returns the configured KPI limits.
func (o *Optimizer) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		CTRMin:  o.cfg.CTRThreshold,
		CPCMax:  o.cfg.CPCThreshold,
		ROASMin: o.cfg.ROASThreshold,
	}
}

// CollectMetrics pulls fresh insights for the campaign and appends them
// as classified performance samples.
func (o *Optimizer) CollectMetrics(ctx context.Context, c *domain.Campaign) error {
	if !c.Status.Running() {
		return nil
	}
	art, err := o.metrics.Execute(ctx, port.ExecutionInput{Campaign: c})
	if err != nil {
		return fmt.Errorf("collect insights: %w", err)
	}
	t := o.Thresholds()
	for i := range art.Samples {
		s := &art.Samples[i]
		s.CampaignID = c.ID
		s.Derive()
		s.Health = domain.HealthFor(s.CTR, s.CPC, s.ROAS, t)
		if err := o.store.AppendSample(ctx, s); err != nil {
			return fmt.Errorf("append sample: %w", err)
		}
	}
	return nil
}

// Evaluate runs one optimization pass for the campaign: summarize the
// lookback window, compare against thresholds, and apply a change set
// when KPIs breach. The cooldown check happens under the campaign lock,
// so concurrent ticks can never double-apply inside the window.
func (o *Optimizer) Evaluate(ctx context.Context, campaignID string) (*domain.Optimization, error) {
	return o.evaluate(ctx, campaignID, false)
}

// ForceOptimize runs an evaluation ignoring the cooldown. Operator use
// only.
func (o *Optimizer) ForceOptimize(ctx context.Context, campaignID string) (*domain.Optimization, error) {
	return o.evaluate(ctx, campaignID, true)
}

func (o *Optimizer) evaluate(ctx context.Context, campaignID string, force bool) (*domain.Optimization, error) {
	unlock := o.locks.Lock(campaignID)
	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !c.Status.Running() {
		unlock()
		return nil, nil
	}
	if c.Status == domain.StatusOptimizing {
		// Another evaluation is mid-flight.
		unlock()
		return nil, nil
	}

	record := &domain.Optimization{CampaignID: c.ID}
	if !force && c.LastOptimizedAt != nil {
		if remaining := o.cfg.Cooldown - time.Since(*c.LastOptimizedAt); remaining > 0 {
			defer unlock()
			record.TriggerReason = "cooldown"
			return record, o.store.AppendOptimization(ctx, record)
		}
	}

	since := time.Now().UTC().Add(-time.Duration(o.cfg.LookbackHours) * time.Hour)
	samples, err := o.store.RecentSamples(ctx, c.ID, o.cfg.LookbackSamples, since)
	if err != nil {
		unlock()
		return nil, err
	}
	summary := domain.Summarize(samples)
	record.Before = domain.SnapshotOf(summary)

	breaches := summary.Breaches(o.Thresholds())
	if len(breaches) == 0 {
		defer unlock()
		record.TriggerReason = "kpis healthy"
		return record, o.store.AppendOptimization(ctx, record)
	}

	record.TriggerReason = fmt.Sprintf("%v", breaches)
	record.Changes = o.propose(summary)
	o.log.Info("optimization triggered",
		"campaign_id", c.ID, "reason", record.TriggerReason, "changes", len(record.Changes))

	// Mark the campaign optimizing, release the lock for the platform
	// calls, then settle back to active.
	c, err = o.orch.commit(ctx, c, domain.StatusOptimizing, port.TransitionEffect{}, domain.ExecutorUpdate)
	if err != nil {
		unlock()
		return nil, err
	}
	creative, err := o.store.LatestCreative(ctx, c.ID)
	if err != nil {
		unlock()
		return nil, err
	}
	unlock()

	applyCtx, cancel := context.WithTimeout(ctx, time.Minute)
	art, applyErr := o.executor.Execute(applyCtx, port.ExecutionInput{
		Campaign: c,
		Creative: creative,
		Changes:  record.Changes,
	})
	cancel()

	unlock = o.locks.Lock(campaignID)
	defer unlock()
	c, err = o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var effect port.TransitionEffect
	if applyErr != nil {
		// Apply failures do not fail the campaign; the next tick retries.
		record.Error = applyErr.Error()
		o.log.Error("optimization apply failed", "campaign_id", c.ID, "error", applyErr)
	} else {
		record.Applied = true
		record.Changes = art.Update.Applied
		record.After = record.Before
		now := time.Now().UTC()
		c.LastOptimizedAt = &now
		if art.Update.Copy != nil && creative != nil {
			creative.Headline = art.Update.Copy.Headline
			creative.Description = art.Update.Copy.Description
			creative.CallToAction = art.Update.Copy.CallToAction
			effect.UpdateCreative = creative
		}
	}

	if c.Status == domain.StatusOptimizing {
		if c, err = o.orch.commit(ctx, c, domain.StatusActive, effect, domain.ExecutorUpdate); err != nil {
			return nil, err
		}
	}
	if err = o.store.AppendOptimization(ctx, record); err != nil {
		return nil, err
	}
	return record, applyErr
}

// propose maps KPI breaches to a typed change set. Strategies stack: a
// campaign failing several KPIs gets several corrective changes.
func (o *Optimizer) propose(s domain.Summary) []domain.Change {
	var changes []domain.Change
	t := o.Thresholds()
	if s.CTR < t.CTRMin {
		changes = append(changes,
			domain.Change{
				Kind:   domain.ChangeContentRefresh,
				Reason: fmt.Sprintf("ctr %.4f below %.4f, ad copy is not landing", s.CTR, t.CTRMin),
			},
			domain.Change{
				Kind:    domain.ChangeAudienceNarrowing,
				Reason:  "low engagement suggests targeting is too broad",
				Percent: -20,
			})
	}
	if s.CPC > t.CPCMax {
		changes = append(changes, domain.Change{
			Kind:    domain.ChangeBidAdjustment,
			Percent: -15,
			Reason:  fmt.Sprintf("cpc %d above ceiling %d", s.CPC, t.CPCMax),
		})
	}
	if s.ROAS < t.ROASMin {
		changes = append(changes, domain.Change{
			Kind:    domain.ChangeBudgetReallocation,
			Percent: -25,
			Reason:  fmt.Sprintf("roas %.2f below floor %.2f, cutting spend on weak inventory", s.ROAS, t.ROASMin),
		})
	}
	return changes
}

// Performance assembles the report served by the performance endpoint.
type Performance struct {
	Summary       domain.Summary             `json:"summary"`
	Health        domain.Health              `json:"health"`
	Breaches      []string                   `json:"breaches,omitempty"`
	Samples       []domain.PerformanceSample `json:"samples"`
	Optimizations []domain.Optimization      `json:"optimizations"`
}

// Report summarizes recent performance for one campaign.
func (o *Optimizer) Report(ctx context.Context, campaignID string) (*Performance, error) {
	if _, err := o.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	since := time.Now().UTC().Add(-time.Duration(o.cfg.LookbackHours) * time.Hour)
	samples, err := o.store.RecentSamples(ctx, campaignID, o.cfg.LookbackSamples, since)
	if err != nil {
		return nil, err
	}
	opts, err := o.store.ListOptimizations(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(samples)
	report := &Performance{
		Summary:       summary,
		Health:        domain.HealthFor(summary.CTR, summary.CPC, summary.ROAS, o.Thresholds()),
		Breaches:      summary.Breaches(o.Thresholds()),
		Samples:       samples,
		Optimizations: opts,
	}
	if summary.Impressions == 0 {
		report.Health = domain.HealthGreen
	}
	return report, nil
}

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

// DecisionLevel is the outcome of one budget evaluation.
type DecisionLevel string

const (
	LevelOK   DecisionLevel = "ok"
	LevelWarn DecisionLevel = "warn"
	LevelHalt DecisionLevel = "halt"
)

// Decision is the budget controller's verdict for one campaign.
type Decision struct {
	Level            DecisionLevel `json:"level"`
	Reason           string        `json:"reason,omitempty"`
	SpentToday       int64         `json:"spent_today"`
	SpentTotal       int64         `json:"spent_total"`
	DailyUtilization float64       `json:"daily_utilization"`
	TotalUtilization float64       `json:"total_utilization"`
}

// CampaignBudget is one row of the fleet-wide budget summary.
type CampaignBudget struct {
	CampaignID  string        `json:"campaign_id"`
	Name        string        `json:"name"`
	Status      domain.Status `json:"status"`
	BudgetDaily int64         `json:"budget_daily"`
	BudgetTotal int64         `json:"budget_total"`
	Decision    Decision      `json:"decision"`
}

// BudgetController protects campaigns from overspend. Platform spend
// reporting lags, so all comparisons run against limits shrunk by a
// safety margin: halting slightly early is recoverable, overspending is
// not. Halts are monotonic; only an explicit operator resume undoes one.
type BudgetController struct {
	store    port.Store
	orch     *Orchestrator
	notifier port.Notifier
	cfg      configs.Budget
	log      *slog.Logger
}

func NewBudgetController(store port.Store, orch *Orchestrator, notifier port.Notifier,
	cfg configs.Budget, log *slog.Logger,
) *BudgetController {
	return &BudgetController{store: store, orch: orch, notifier: notifier, cfg: cfg, log: log}
}

// Evaluate computes the budget decision for a campaign without acting
// on it.
func (b *BudgetController) Evaluate(ctx context.Context, c *domain.Campaign) (Decision, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	spentTotal, err := b.store.SpendSince(ctx, c.ID, time.Time{})
	if err != nil {
		return Decision{}, fmt.Errorf("total spend: %w", err)
	}
	spentToday, err := b.store.SpendSince(ctx, c.ID, dayStart)
	if err != nil {
		return Decision{}, fmt.Errorf("daily spend: %w", err)
	}

	dailyLimit := c.BudgetDaily
	if b.cfg.DailyBudgetLimit > 0 && b.cfg.DailyBudgetLimit < dailyLimit {
		dailyLimit = b.cfg.DailyBudgetLimit
	}
	effDaily := b.withMargin(dailyLimit)
	effTotal := b.withMargin(c.BudgetTotal)

	d := Decision{
		Level:      LevelOK,
		SpentToday: spentToday,
		SpentTotal: spentTotal,
	}
	if dailyLimit > 0 {
		d.DailyUtilization = float64(spentToday) / float64(dailyLimit)
	}
	if c.BudgetTotal > 0 {
		d.TotalUtilization = float64(spentTotal) / float64(c.BudgetTotal)
	}

	switch {
	case spentTotal >= effTotal:
		d.Level = LevelHalt
		d.Reason = fmt.Sprintf("total spend %d reached limit %d (margin %d%%)",
			spentTotal, c.BudgetTotal, b.cfg.SafetyMarginPercent)
	case spentToday >= effDaily:
		d.Level = LevelHalt
		d.Reason = fmt.Sprintf("daily spend %d reached limit %d (margin %d%%)",
			spentToday, dailyLimit, b.cfg.SafetyMarginPercent)
	case projectedDaily(spentToday, now, dayStart) > effDaily:
		d.Level = LevelHalt
		d.Reason = fmt.Sprintf("daily spend %d projects past limit %d before midnight",
			spentToday, dailyLimit)
	case d.DailyUtilization >= b.cfg.WarnUtilization || d.TotalUtilization >= b.cfg.WarnUtilization:
		d.Level = LevelWarn
		d.Reason = "budget utilization above warning threshold"
	}
	return d, nil
}

// Check evaluates one campaign and enforces the verdict: warnings go out
// through the notifier, halts stop the campaign and raise a budget
// approval request. Halted campaigns are skipped outright.
func (b *BudgetController) Check(ctx context.Context, c *domain.Campaign) (Decision, error) {
	if c.Status == domain.StatusHalted || c.Status.Terminal() {
		return Decision{Level: LevelOK}, nil
	}
	d, err := b.Evaluate(ctx, c)
	if err != nil {
		return d, err
	}
	switch d.Level {
	case LevelWarn:
		b.log.Warn("budget warning",
			"campaign_id", c.ID, "daily_utilization", d.DailyUtilization,
			"total_utilization", d.TotalUtilization)
		b.notifier.BudgetAlert(ctx, c, string(LevelWarn), max(d.DailyUtilization, d.TotalUtilization))
	case LevelHalt:
		halted, herr := b.orch.Halt(ctx, c.ID, d.Reason)
		if herr != nil {
			return d, fmt.Errorf("halt campaign: %w", herr)
		}
		b.notifier.BudgetAlert(ctx, halted, string(LevelHalt), max(d.DailyUtilization, d.TotalUtilization))
		approval, aerr := b.orch.requestApproval(ctx, halted, domain.SubjectBudget, nil)
		if aerr != nil {
			return d, aerr
		}
		b.notifier.ApprovalRequested(ctx, approval)
	}
	return d, nil
}

// Adjust replaces the campaign's budget limits. This is the recovery
// path out of a budget halt: raise the limits, resolve the raised
// approval, resume. The write goes through CommitTransition so it
// carries the optimistic version check and lands in the history.
func (b *BudgetController) Adjust(ctx context.Context, campaignID string, daily, total int64) (*domain.Campaign, Decision, error) {
	if daily <= 0 || total <= 0 {
		return nil, Decision{}, fmt.Errorf("%w: budgets must be positive", ErrInvalidState)
	}
	unlock := b.orch.locks.Lock(campaignID)
	defer unlock()
	c, err := b.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, Decision{}, err
	}
	if c.Status.Terminal() {
		return c, Decision{}, fmt.Errorf("%w: cannot adjust budget of a %s campaign", ErrInvalidState, c.Status)
	}
	c.BudgetDaily = daily
	c.BudgetTotal = total
	if err = b.store.CommitTransition(ctx, c, port.TransitionEffect{}); err != nil {
		return c, Decision{}, fmt.Errorf("adjust budget: %w", err)
	}
	b.log.Info("budget adjusted",
		"campaign_id", c.ID, "budget_daily", daily, "budget_total", total)
	d, err := b.Evaluate(ctx, c)
	if err != nil {
		return c, Decision{}, err
	}
	return c, d, nil
}

// Summary reports budget standing for every running or halted campaign.
func (b *BudgetController) Summary(ctx context.Context) ([]CampaignBudget, error) {
	campaigns, err := b.store.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CampaignBudget, 0, len(campaigns))
	for i := range campaigns {
		c := &campaigns[i]
		if c.Archived || (!c.Status.Running() && c.Status != domain.StatusHalted) {
			continue
		}
		d, err := b.Evaluate(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, CampaignBudget{
			CampaignID:  c.ID,
			Name:        c.Name,
			Status:      c.Status,
			BudgetDaily: c.BudgetDaily,
			BudgetTotal: c.BudgetTotal,
			Decision:    d,
		})
	}
	return out, nil
}

func (b *BudgetController) withMargin(limit int64) int64 {
	margin := int64(b.cfg.SafetyMarginPercent)
	if margin < 0 || margin > 50 {
		margin = 0
	}
	return limit * (100 - margin) / 100
}

// projectedDaily extrapolates the day's spend rate to a full 24h window.
// Early-morning noise is ignored; projections start an hour into the day.
func projectedDaily(spentToday int64, now, dayStart time.Time) int64 {
	elapsed := now.Sub(dayStart)
	if elapsed < time.Hour {
		return 0
	}
	return int64(float64(spentToday) * float64(24*time.Hour) / float64(elapsed))
}

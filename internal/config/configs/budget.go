package configs

import "time"

// Budget configures the overspend controller. The safety margin trades a
// slightly early halt for overspend-proof behaviour: platform reporting
// lags, so the controller stops short of the hard limit.
type Budget struct {
	// SafetyMarginPercent shrinks the effective budget limits, 0-50.
	SafetyMarginPercent int `env:"SAFETY_MARGIN_PERCENT" envDefault:"5"`
	// CheckInterval is the budget control-loop cadence. It must be
	// shorter than the optimization interval; halts take precedence.
	CheckInterval time.Duration `env:"CHECK_INTERVAL" envDefault:"15m"`
	// DailyBudgetLimit is a global per-campaign daily spend ceiling in
	// cents, applied on top of each campaign's own daily budget.
	DailyBudgetLimit int64 `env:"DAILY_BUDGET_LIMIT" envDefault:"100000"`
	// WarnUtilization is the fraction of budget spent that triggers a
	// notification without halting.
	WarnUtilization float64 `env:"WARN_UTILIZATION" envDefault:"0.8"`
}

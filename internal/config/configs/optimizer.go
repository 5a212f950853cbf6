package configs

import "time"

// Optimizer configures KPI thresholds and the optimization control loop.
// CPCThreshold is cents; CTRThreshold and ROASThreshold are ratios.
type Optimizer struct {
	CTRThreshold  float64 `env:"CTR_THRESHOLD" envDefault:"0.02"`
	CPCThreshold  int64   `env:"CPC_THRESHOLD" envDefault:"200"`
	ROASThreshold float64 `env:"ROAS_THRESHOLD" envDefault:"3.0"`
	// Cooldown is the minimum interval between applied optimizations for
	// one campaign, the hysteresis that stops thrashing on noisy metrics.
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"6h"`
	// LookbackSamples and LookbackHours bound the rolling window: the
	// most recent N samples no older than T hours, whichever is smaller.
	LookbackSamples int           `env:"LOOKBACK_SAMPLES" envDefault:"12"`
	LookbackHours   int           `env:"LOOKBACK_HOURS" envDefault:"24"`
	TickInterval    time.Duration `env:"TICK_INTERVAL" envDefault:"1h"`
	// MaxConcurrentEvaluations caps parallel outbound platform calls per
	// tick across all campaigns.
	MaxConcurrentEvaluations int `env:"MAX_CONCURRENT_EVALUATIONS" envDefault:"4"`
}

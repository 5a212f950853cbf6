package configs

import "time"

// Workflow configures the campaign state machine: retry policy for
// executor calls, the regeneration bound after creative rejection and
// whether human approval gates are enabled.
type Workflow struct {
	// MaxRetryAttempts caps executor attempts per state before the
	// campaign fails.
	MaxRetryAttempts int `env:"MAX_RETRY_ATTEMPTS" envDefault:"3"`
	// RetryBackoffBase is the first retry delay; it doubles per attempt.
	RetryBackoffBase time.Duration `env:"RETRY_BACKOFF_BASE" envDefault:"2s"`
	// MaxRegenAttempts caps creative regenerations after rejection.
	MaxRegenAttempts int `env:"MAX_REGEN_ATTEMPTS" envDefault:"2"`
	// ExecutorTimeout bounds every external executor call.
	ExecutorTimeout time.Duration `env:"EXECUTOR_TIMEOUT" envDefault:"45s"`
	// HumanApprovalRequired inserts the creative and budget approval
	// gates into the workflow. When false, gates are skipped entirely.
	HumanApprovalRequired bool `env:"HUMAN_APPROVAL_REQUIRED" envDefault:"true"`
}

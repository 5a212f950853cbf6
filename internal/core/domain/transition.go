package domain

import "time"

// TransitionRecord is one entry in a campaign's execution history: a
// state change or a failed attempt at one. Failed campaigns keep their
// whole history for diagnosis.
type TransitionRecord struct {
	ID         string
	CampaignID string
	From       Status
	To         Status
	Attempt    int
	Executor   ExecutorKind
	Error      string
	CreatedAt  time.Time
}

// ExecutorKind identifies a task executor variant.
type ExecutorKind string

const (
	ExecutorContent ExecutorKind = "content"
	ExecutorVisual  ExecutorKind = "visual"
	ExecutorLaunch  ExecutorKind = "launch"
	ExecutorMetrics ExecutorKind = "metrics"
	ExecutorUpdate  ExecutorKind = "update"
)

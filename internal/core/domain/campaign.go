package domain

import "time"

// Status is the lifecycle state of a campaign. The orchestrator owns the
// campaign record: the status field changes only through a committed
// workflow transition, never by ad-hoc writes.
type Status string

const (
	StatusCreated                 Status = "created"
	StatusContentGenerating       Status = "content_generating"
	StatusVisualGenerating        Status = "visual_generating"
	StatusPendingCreativeApproval Status = "pending_creative_approval"
	StatusPendingBudgetApproval   Status = "pending_budget_approval"
	StatusLaunching               Status = "launching"
	StatusActive                  Status = "active"
	StatusOptimizing              Status = "optimizing"
	StatusPaused                  Status = "paused"
	StatusHalted                  Status = "halted" // budget stop, explicit resume only
	StatusCompleted               Status = "completed"
	StatusFailed                  Status = "failed"
)

// Platform identifies where a campaign runs.
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformGoogle Platform = "google"
	PlatformBoth   Platform = "both"
)

// Campaign is the top-level unit of work tracked through the lifecycle
// state machine. Budgets are stored in integer units (cents).
type Campaign struct {
	ID               string
	Name             string
	Platform         Platform
	Objective        string
	ProductName      string
	Audience         Audience
	BudgetDaily      int64
	BudgetTotal      int64
	Status           Status
	MetaCampaignID   string // external id once launched on Meta
	GoogleCampaignID string // external id once launched on Google
	RegenAttempts    int    // creative regenerations after rejection
	Version          int    // optimistic concurrency token
	LastOptimizedAt  *time.Time
	HaltedAt         *time.Time
	HaltedFrom       Status // status to restore on explicit resume
	Archived         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// transitions lists the permitted next states for each status. Pause,
// halt and failure are handled separately: they may interrupt any
// non-terminal state, and resume restores the recorded prior state.
var transitions = map[Status][]Status{
	StatusCreated:                 {StatusContentGenerating},
	StatusContentGenerating:       {StatusVisualGenerating},
	StatusVisualGenerating:        {StatusPendingCreativeApproval, StatusPendingBudgetApproval, StatusLaunching},
	StatusPendingCreativeApproval: {StatusPendingBudgetApproval, StatusLaunching, StatusContentGenerating},
	StatusPendingBudgetApproval:   {StatusLaunching},
	StatusLaunching:               {StatusActive},
	StatusActive:                  {StatusOptimizing, StatusCompleted},
	StatusOptimizing:              {StatusActive},
	StatusPaused:                  {},
	StatusHalted:                  {},
	StatusCompleted:               {},
	StatusFailed:                  {},
}

// CanTransition reports whether moving between the two statuses follows
// the workflow graph. Failure is reachable from any non-terminal state,
// pause and halt from any state not already suspended.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	if to == StatusPaused || to == StatusHalted {
		return from != StatusPaused && from != StatusHalted
	}
	// Resume restores the recorded pre-suspension state.
	if from == StatusPaused || from == StatusHalted {
		return !to.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle. Terminal
// campaigns are archived, never deleted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Running reports whether the campaign is live on a platform and subject
// to the budget and optimization control loops.
func (s Status) Running() bool {
	return s == StatusActive || s == StatusOptimizing
}

// Valid reports whether p names a known platform target.
func (p Platform) Valid() bool {
	return p == PlatformMeta || p == PlatformGoogle || p == PlatformBoth
}

// Each returns the concrete platforms the target expands to.
func (p Platform) Each() []Platform {
	if p == PlatformBoth {
		return []Platform{PlatformMeta, PlatformGoogle}
	}
	return []Platform{p}
}

// ExternalID returns the platform campaign id recorded for p, if any.
func (c *Campaign) ExternalID(p Platform) string {
	switch p {
	case PlatformMeta:
		return c.MetaCampaignID
	case PlatformGoogle:
		return c.GoogleCampaignID
	}
	return ""
}

// SetExternalID records the platform campaign id returned by a launch.
func (c *Campaign) SetExternalID(p Platform, id string) {
	switch p {
	case PlatformMeta:
		c.MetaCampaignID = id
	case PlatformGoogle:
		c.GoogleCampaignID = id
	}
}

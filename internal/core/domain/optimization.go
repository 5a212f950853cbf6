package domain

import "time"

// ChangeKind names an optimization strategy the optimizer can apply.
type ChangeKind string

const (
	ChangeContentRefresh     ChangeKind = "content_refresh"
	ChangeBidAdjustment      ChangeKind = "bid_adjustment"
	ChangeBudgetReallocation ChangeKind = "budget_reallocation"
	ChangeAudienceNarrowing  ChangeKind = "audience_narrowing"
)

// Change is one proposed adjustment with the magnitude and reason the
// platform-update executor needs to apply it.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Percent float64    `json:"percent,omitempty"` // signed, for bid/budget changes
	Reason  string     `json:"reason"`
}

// MetricSnapshot freezes the KPI values around an optimization so the
// audit trail captures both sides of every change.
type MetricSnapshot struct {
	CTR         float64 `json:"ctr"`
	CPC         int64   `json:"cpc"`
	ROAS        float64 `json:"roas"`
	Spend       int64   `json:"spend"`
	Conversions int64   `json:"conversions"`
}

// Optimization is the append-only audit record of one optimizer
// evaluation. Evaluations that propose nothing are recorded too, with an
// empty change set, so the trail is complete for no-op ticks.
type Optimization struct {
	ID            string         `json:"id"`
	CampaignID    string         `json:"campaign_id"`
	TriggerReason string         `json:"trigger_reason"`
	Before        MetricSnapshot `json:"before"`
	After         MetricSnapshot `json:"after"`
	Changes       []Change       `json:"changes"`
	Applied       bool           `json:"applied"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SnapshotOf converts a summary into the frozen form stored on
// optimization records.
func SnapshotOf(s Summary) MetricSnapshot {
	return MetricSnapshot{
		CTR:         s.CTR,
		CPC:         s.CPC,
		ROAS:        s.ROAS,
		Spend:       s.Spend,
		Conversions: s.Conversions,
	}
}

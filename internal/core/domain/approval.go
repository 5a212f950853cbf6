package domain

import (
	"encoding/json"
	"time"
)

// ApprovalSubject names what an approval request is about. A campaign
// carries at most one pending request per subject at any time.
type ApprovalSubject string

const (
	SubjectCreative     ApprovalSubject = "creative"
	SubjectBudget       ApprovalSubject = "budget"
	SubjectOptimization ApprovalSubject = "optimization"
)

// ApprovalStatus is the decision state of a request. A request is
// resolved exactly once and is terminal afterwards.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a human-in-the-loop checkpoint raised by the orchestrator
// or the budget controller and resolved by an external actor.
type Approval struct {
	ID          string          `json:"id"`
	CampaignID  string          `json:"campaign_id"`
	CreativeID  string          `json:"creative_id,omitempty"` // set for creative approvals
	Subject     ApprovalSubject `json:"subject"`
	Status      ApprovalStatus  `json:"status"`
	Details     json.RawMessage `json:"details"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	DecidedBy   string          `json:"decided_by,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Decided reports whether the request has been resolved.
func (a *Approval) Decided() bool {
	return a.Status != ApprovalPending
}

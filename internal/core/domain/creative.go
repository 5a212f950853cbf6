package domain

import "time"

// ApprovalState tracks where a creative sits in the review flow.
type ApprovalState string

const (
	CreativeDraft    ApprovalState = "draft"
	CreativePending  ApprovalState = "pending"
	CreativeApproved ApprovalState = "approved"
	CreativeRejected ApprovalState = "rejected"
)

// Creative is an individual advertisement produced by the content and
// visual executors and consumed by the launch executor. Once approved it
// is immutable; rejection routes the campaign back through generation,
// which produces a fresh creative rather than editing this one.
type Creative struct {
	ID           string
	CampaignID   string
	Headline     string
	Description  string
	CallToAction string
	ImageURL     string
	ImagePrompt  string
	State        ApprovalState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

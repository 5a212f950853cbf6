package port

import (
	"context"
	"time"

	"adpilot/internal/core/domain"
)

// CopyBrief is the input for ad copy generation.
type CopyBrief struct {
	ProductName string
	Objective   string
	Platform    domain.Platform
	Audience    domain.Audience
	// PriorHeadline is set on regeneration so the generator produces a
	// different angle instead of repeating a rejected creative.
	PriorHeadline string
}

// AdCopy is generated ad text.
type AdCopy struct {
	Headline     string
	Description  string
	CallToAction string
}

// CopyGenerator produces ad copy. Implementations call an external LLM
// service; the core only sees this contract.
type CopyGenerator interface {
	GenerateCopy(ctx context.Context, brief CopyBrief) (*AdCopy, error)
}

// ImageGenerator produces a hosted ad image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (url string, err error)
}

// Insights is a raw performance read from an ad platform.
type Insights struct {
	Impressions int64
	Clicks      int64
	Spend       int64 // cents
	Conversions int64
	Revenue     int64 // cents
}

// AdPlatform is the narrow surface of one external advertising platform.
type AdPlatform interface {
	Platform() domain.Platform
	// Launch creates the campaign remotely and returns the platform's
	// campaign id. Implementations must deduplicate by campaign id:
	// relaunching an already-created campaign returns the existing id.
	Launch(ctx context.Context, c *domain.Campaign, cr *domain.Creative) (externalID string, err error)
	Pause(ctx context.Context, externalID string) error
	Resume(ctx context.Context, externalID string) error
	// Apply pushes optimization changes to the running campaign.
	Apply(ctx context.Context, externalID string, changes []domain.Change) error
	Insights(ctx context.Context, externalID string, since time.Time) (*Insights, error)
}

// Notifier surfaces approval requests and budget alerts to humans. Calls
// are best effort; failures must not affect campaign state.
type Notifier interface {
	ApprovalRequested(ctx context.Context, a *domain.Approval)
	BudgetAlert(ctx context.Context, c *domain.Campaign, level string, utilization float64)
}

package port

import (
	"context"
	"time"

	"adpilot/internal/core/domain"
)

// TransitionEffect carries the artifacts a state transition produced, so
// the store can commit them atomically with the status change. Fields
// are optional; an empty effect commits only the status and the record.
type TransitionEffect struct {
	// NewCreative is inserted (content generation produced a creative).
	NewCreative *domain.Creative
	// UpdateCreative is written over the existing row (visual generation
	// attached an image, an approval changed the review state).
	UpdateCreative *domain.Creative
	// Record is the history entry for this transition.
	Record *domain.TransitionRecord
}

// Store is the persistence port for the orchestrator. Implementations
// must be concurrency-safe. CommitTransition must be atomic: the status
// change, its artifacts and the history record commit together or not at
// all, and a stale campaign Version fails the whole commit with
// domain.ErrConcurrentModification.
type Store interface {
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// ListRunning returns campaigns in active or optimizing state, the
	// population the control loops iterate.
	ListRunning(ctx context.Context) ([]domain.Campaign, error)
	CommitTransition(ctx context.Context, c *domain.Campaign, effect TransitionEffect) error
	ArchiveCampaign(ctx context.Context, id string) error

	// AppendAttempt records a failed executor attempt that did not change
	// state. Kept outside CommitTransition so attempt history survives
	// rollbacks of the work itself.
	AppendAttempt(ctx context.Context, rec *domain.TransitionRecord) error
	ListTransitions(ctx context.Context, campaignID string) ([]domain.TransitionRecord, error)

	GetCreative(ctx context.Context, id string) (*domain.Creative, error)
	// LatestCreative returns the newest creative for the campaign, nil
	// when none exists yet.
	LatestCreative(ctx context.Context, campaignID string) (*domain.Creative, error)

	// AppendSample stores one performance observation. Samples are
	// append-only and safe for concurrent writers.
	AppendSample(ctx context.Context, s *domain.PerformanceSample) error
	// RecentSamples returns up to limit samples for the campaign no older
	// than since, newest first.
	RecentSamples(ctx context.Context, campaignID string, limit int, since time.Time) ([]domain.PerformanceSample, error)
	// SpendSince sums recorded spend for the campaign from since onward.
	SpendSince(ctx context.Context, campaignID string, since time.Time) (int64, error)

	CreateApproval(ctx context.Context, a *domain.Approval) error
	GetApproval(ctx context.Context, id string) (*domain.Approval, error)
	// PendingApproval returns the pending request for (campaign, subject),
	// nil when there is none.
	PendingApproval(ctx context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error)
	// LatestApproval returns the most recently requested approval for
	// (campaign, subject) regardless of status, nil when none exists. The
	// gates read decisions through it.
	LatestApproval(ctx context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error)
	// ResolveApproval marks a pending request decided. It must fail with
	// domain.ErrAlreadyDecided when the request is not pending, atomically.
	ResolveApproval(ctx context.Context, id string, status domain.ApprovalStatus, actor, notes string) (*domain.Approval, error)

	AppendOptimization(ctx context.Context, o *domain.Optimization) error
	ListOptimizations(ctx context.Context, campaignID string) ([]domain.Optimization, error)
}

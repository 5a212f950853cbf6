package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// requestApproval returns the pending request for (campaign, subject),
// creating one when none exists. A campaign never carries two pending
// requests for the same subject.
func (o *Orchestrator) requestApproval(ctx context.Context, c *domain.Campaign,
	subject domain.ApprovalSubject, creative *domain.Creative,
) (*domain.Approval, error) {
	pending, err := o.store.PendingApproval(ctx, c.ID, subject)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return pending, nil
	}

	details := map[string]any{"campaign_name": c.Name}
	approval := &domain.Approval{
		CampaignID: c.ID,
		Subject:    subject,
		Status:     domain.ApprovalPending,
	}
	switch subject {
	case domain.SubjectCreative:
		if creative != nil {
			approval.CreativeID = creative.ID
			details["headline"] = creative.Headline
			details["description"] = creative.Description
			details["image_url"] = creative.ImageURL
		}
	case domain.SubjectBudget:
		details["budget_daily"] = c.BudgetDaily
		details["budget_total"] = c.BudgetTotal
	}
	approval.Details, err = json.Marshal(details)
	if err != nil {
		return nil, err
	}
	if err = o.store.CreateApproval(ctx, approval); err != nil {
		// A concurrent tick won the insert race; its request serves.
		if errors.Is(err, domain.ErrApprovalPending) {
			if pending, perr := o.store.PendingApproval(ctx, c.ID, subject); perr == nil && pending != nil {
				return pending, nil
			}
		}
		return nil, fmt.Errorf("create approval: %w", err)
	}
	o.log.Info("approval requested",
		"campaign_id", c.ID, "subject", subject, "approval_id", approval.ID)
	return approval, nil
}

// Approvals resolves human decisions and kicks the blocked campaign
// forward afterwards.
type Approvals struct {
	store port.Store
	orch  *Orchestrator
	log   *slog.Logger
}

func NewApprovals(store port.Store, orch *Orchestrator, log *slog.Logger) *Approvals {
	return &Approvals{store: store, orch: orch, log: log}
}

// Resolve decides a pending request exactly once; a second decision
// fails with domain.ErrAlreadyDecided. The campaign is then re-evaluated:
// approvals advance it, a rejected creative routes back through
// generation, a rejected budget pauses it.
func (a *Approvals) Resolve(ctx context.Context, id string, approve bool, actor, notes string) (*domain.Approval, *domain.Campaign, error) {
	status := domain.ApprovalRejected
	if approve {
		status = domain.ApprovalApproved
	}
	approval, err := a.store.ResolveApproval(ctx, id, status, actor, notes)
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("approval resolved",
		"approval_id", approval.ID, "campaign_id", approval.CampaignID,
		"subject", approval.Subject, "status", status, "actor", actor)

	c, err := a.orch.Advance(ctx, approval.CampaignID)
	if err != nil && !errors.Is(err, ErrAwaitingApproval) {
		// The decision itself stuck; the campaign outcome (including a
		// terminal failure after exhausted regenerations) is its own story.
		a.log.Warn("post-decision advance",
			"campaign_id", approval.CampaignID, "error", err)
	}
	return approval, c, nil
}

// Pending lists what a campaign is waiting on, nil when nothing is.
func (a *Approvals) Pending(ctx context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error) {
	return a.store.PendingApproval(ctx, campaignID, subject)
}

// Package notify surfaces approval requests and budget alerts to
// humans. The log implementation is the default sink; a chat or email
// adapter plugs in behind the same port.
package notify

import (
	"context"
	"log/slog"

	"adpilot/internal/core/domain"
)

// Log writes notifications to the structured log. Best effort by
// contract: it never returns anything the caller could act on.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (n *Log) ApprovalRequested(_ context.Context, a *domain.Approval) {
	n.log.Info("APPROVAL NEEDED",
		"approval_id", a.ID, "campaign_id", a.CampaignID, "subject", a.Subject)
}

func (n *Log) BudgetAlert(_ context.Context, c *domain.Campaign, level string, utilization float64) {
	n.log.Warn("BUDGET ALERT",
		"campaign_id", c.ID, "campaign", c.Name, "level", level, "utilization", utilization)
}

package executor

import (
	"context"
	"errors"
	"unicode/utf8"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

// Platform copy limits. Both Meta and Google reject longer text, so
// exceeding them is a policy failure no retry can fix.
const (
	maxHeadlineLen    = 120
	maxDescriptionLen = 500
)

// Content generates ad copy for a campaign.
type Content struct {
	gen     port.CopyGenerator
	breaker *resilience.Breaker
}

func NewContent(gen port.CopyGenerator, breakers *resilience.Group) *Content {
	return &Content{gen: gen, breaker: breakers.For("copy")}
}

func (e *Content) Kind() domain.ExecutorKind { return domain.ExecutorContent }

// Execute produces fresh ad copy. When the input carries a prior
// creative the brief asks for a different angle, so a rejected creative
// is never regenerated verbatim.
func (e *Content) Execute(ctx context.Context, in port.ExecutionInput) (*port.Artifact, error) {
	brief := port.CopyBrief{
		ProductName: in.Campaign.ProductName,
		Objective:   in.Campaign.Objective,
		Platform:    in.Campaign.Platform,
		Audience:    in.Campaign.Audience,
	}
	if in.Creative != nil {
		brief.PriorHeadline = in.Creative.Headline
	}

	var copyOut *port.AdCopy
	err := e.breaker.Do(func() error {
		var gerr error
		copyOut, gerr = e.gen.GenerateCopy(ctx, brief)
		return gerr
	})
	if err != nil {
		return nil, classify("generate copy", err)
	}
	if copyOut.Headline == "" {
		return nil, domain.Terminal("generate copy", errors.New("generator returned empty headline"))
	}
	if utf8.RuneCountInString(copyOut.Headline) > maxHeadlineLen ||
		utf8.RuneCountInString(copyOut.Description) > maxDescriptionLen {
		return nil, domain.Terminal("generate copy", errors.New("copy exceeds platform length limits"))
	}

	return &port.Artifact{
		Kind: domain.ExecutorContent,
		Content: &port.ContentArtifact{
			Headline:     copyOut.Headline,
			Description:  copyOut.Description,
			CallToAction: copyOut.CallToAction,
		},
	}, nil
}

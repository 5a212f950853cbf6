package executor

import (
	"context"
	"fmt"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

// Update applies an optimizer change set. Bid, budget and audience
// changes go to the platforms; a content refresh runs the copy generator
// and hands the new text back for the creative.
type Update struct {
	platforms map[domain.Platform]port.AdPlatform
	copyGen   port.CopyGenerator
	breakers  *resilience.Group
}

func NewUpdate(platforms []port.AdPlatform, copyGen port.CopyGenerator, breakers *resilience.Group) *Update {
	byPlatform := make(map[domain.Platform]port.AdPlatform, len(platforms))
	for _, p := range platforms {
		byPlatform[p.Platform()] = p
	}
	return &Update{platforms: byPlatform, copyGen: copyGen, breakers: breakers}
}

func (e *Update) Kind() domain.ExecutorKind { return domain.ExecutorUpdate }

func (e *Update) Execute(ctx context.Context, in port.ExecutionInput) (*port.Artifact, error) {
	c := in.Campaign
	art := &port.UpdateArtifact{}

	var platformChanges []domain.Change
	for _, ch := range in.Changes {
		if ch.Kind == domain.ChangeContentRefresh {
			copyOut, err := e.refreshContent(ctx, in)
			if err != nil {
				return nil, err
			}
			art.Copy = copyOut
			art.Applied = append(art.Applied, ch)
			continue
		}
		platformChanges = append(platformChanges, ch)
	}

	if len(platformChanges) > 0 {
		for _, target := range c.Platform.Each() {
			externalID := c.ExternalID(target)
			client, ok := e.platforms[target]
			if externalID == "" || !ok {
				continue
			}
			err := e.breakers.For(string(target)).Do(func() error {
				return client.Apply(ctx, externalID, platformChanges)
			})
			if err != nil {
				return nil, classify(fmt.Sprintf("apply changes on %s", target), err)
			}
		}
		art.Applied = append(art.Applied, platformChanges...)
	}

	return &port.Artifact{Kind: domain.ExecutorUpdate, Update: art}, nil
}

func (e *Update) refreshContent(ctx context.Context, in port.ExecutionInput) (*port.ContentArtifact, error) {
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
	err := e.breakers.For("copy").Do(func() error {
		var gerr error
		copyOut, gerr = e.copyGen.GenerateCopy(ctx, brief)
		return gerr
	})
	if err != nil {
		return nil, classify("refresh copy", err)
	}
	return &port.ContentArtifact{
		Headline:     copyOut.Headline,
		Description:  copyOut.Description,
		CallToAction: copyOut.CallToAction,
	}, nil
}

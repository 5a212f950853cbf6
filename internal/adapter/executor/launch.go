package executor

import (
	"context"
	"fmt"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

// Launch creates the campaign on each target platform. Platforms the
// campaign already carries an external id for are skipped, so a retried
// launch only touches what is still missing.
type Launch struct {
	platforms map[domain.Platform]port.AdPlatform
	breakers  *resilience.Group
}

func NewLaunch(platforms []port.AdPlatform, breakers *resilience.Group) *Launch {
	byPlatform := make(map[domain.Platform]port.AdPlatform, len(platforms))
	for _, p := range platforms {
		byPlatform[p.Platform()] = p
	}
	return &Launch{platforms: byPlatform, breakers: breakers}
}

func (e *Launch) Kind() domain.ExecutorKind { return domain.ExecutorLaunch }

func (e *Launch) Execute(ctx context.Context, in port.ExecutionInput) (*port.Artifact, error) {
	c := in.Campaign
	ids := make(map[domain.Platform]string)
	for _, target := range c.Platform.Each() {
		if existing := c.ExternalID(target); existing != "" {
			ids[target] = existing
			continue
		}
		client, ok := e.platforms[target]
		if !ok {
			return nil, domain.Terminal("launch", fmt.Errorf("no client for platform %s", target))
		}
		var externalID string
		err := e.breakers.For(string(target)).Do(func() error {
			var lerr error
			externalID, lerr = client.Launch(ctx, c, in.Creative)
			return lerr
		})
		if err != nil {
			return nil, classify(fmt.Sprintf("launch on %s", target), err)
		}
		ids[target] = externalID
	}
	return &port.Artifact{
		Kind:   domain.ExecutorLaunch,
		Launch: &port.LaunchArtifact{ExternalIDs: ids},
	}, nil
}

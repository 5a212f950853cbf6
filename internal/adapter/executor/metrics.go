package executor

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

// Metrics pulls performance insights from each platform the campaign is
// live on and turns them into samples. One platform failing does not
// lose the others' numbers.
type Metrics struct {
	platforms map[domain.Platform]port.AdPlatform
	breakers  *resilience.Group
	window    time.Duration
}

// NewMetrics builds the collector. The window should match the
// collection cadence so consecutive samples tile the timeline.
func NewMetrics(platforms []port.AdPlatform, breakers *resilience.Group, window time.Duration) *Metrics {
	byPlatform := make(map[domain.Platform]port.AdPlatform, len(platforms))
	for _, p := range platforms {
		byPlatform[p.Platform()] = p
	}
	return &Metrics{platforms: byPlatform, breakers: breakers, window: window}
}

func (e *Metrics) Kind() domain.ExecutorKind { return domain.ExecutorMetrics }

func (e *Metrics) Execute(ctx context.Context, in port.ExecutionInput) (*port.Artifact, error) {
	c := in.Campaign
	since := time.Now().UTC().Add(-e.window)
	samples := make([]domain.PerformanceSample, 0, 2)
	var lastErr error
	for _, target := range c.Platform.Each() {
		externalID := c.ExternalID(target)
		client, ok := e.platforms[target]
		if externalID == "" || !ok {
			continue
		}
		var ins *port.Insights
		err := e.breakers.For(string(target)).Do(func() error {
			var ierr error
			ins, ierr = client.Insights(ctx, externalID, since)
			return ierr
		})
		if err != nil {
			lastErr = classify(fmt.Sprintf("insights from %s", target), err)
			continue
		}
		samples = append(samples, domain.PerformanceSample{
			CampaignID:  c.ID,
			Platform:    target,
			Impressions: ins.Impressions,
			Clicks:      ins.Clicks,
			Spend:       ins.Spend,
			Conversions: ins.Conversions,
			Revenue:     ins.Revenue,
		})
	}
	if len(samples) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return &port.Artifact{Kind: domain.ExecutorMetrics, Samples: samples}, nil
}

package executor

import (
	"context"
	"fmt"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

// Visual produces an ad image for the campaign's creative.
type Visual struct {
	gen     port.ImageGenerator
	breaker *resilience.Breaker
}

func NewVisual(gen port.ImageGenerator, breakers *resilience.Group) *Visual {
	return &Visual{gen: gen, breaker: breakers.For("image")}
}

func (e *Visual) Kind() domain.ExecutorKind { return domain.ExecutorVisual }

func (e *Visual) Execute(ctx context.Context, in port.ExecutionInput) (*port.Artifact, error) {
	prompt := buildImagePrompt(in.Campaign, in.Creative)
	var url string
	err := e.breaker.Do(func() error {
		var gerr error
		url, gerr = e.gen.GenerateImage(ctx, prompt)
		return gerr
	})
	if err != nil {
		return nil, classify("generate image", err)
	}
	return &port.Artifact{
		Kind:  domain.ExecutorVisual,
		Image: &port.ImageArtifact{URL: url, Prompt: prompt},
	}, nil
}

func buildImagePrompt(c *domain.Campaign, cr *domain.Creative) string {
	headline := ""
	if cr != nil {
		headline = cr.Headline
	}
	return fmt.Sprintf("Advertising image for %s. Objective: %s. Headline: %q.",
		c.ProductName, c.Objective, headline)
}

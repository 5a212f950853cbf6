package port

import (
	"context"
	"errors"

	"adpilot/internal/core/domain"
)

// ExecutionInput is what an executor needs to do its task: the campaign
// and whatever prior artifacts the workflow has produced.
type ExecutionInput struct {
	Campaign *domain.Campaign
	Creative *domain.Creative // latest creative, when one exists
	Changes  []domain.Change  // for the update executor
}

// ContentArtifact is the ad copy produced by the content executor.
type ContentArtifact struct {
	Headline     string
	Description  string
	CallToAction string
}

// ImageArtifact is the visual produced by the visual executor.
type ImageArtifact struct {
	URL    string
	Prompt string
}

// LaunchArtifact confirms platform launches with the external campaign
// ids the platforms assigned.
type LaunchArtifact struct {
	ExternalIDs map[domain.Platform]string
}

// UpdateArtifact reports which proposed changes were applied. Copy is
// set when a content refresh produced new ad text for the creative.
type UpdateArtifact struct {
	Applied []domain.Change
	Copy    *ContentArtifact
}

// Artifact is the tagged result of an execution. Exactly the payload
// matching Kind is set; the orchestrator validates this before
// persisting a transition.
type Artifact struct {
	Kind    domain.ExecutorKind
	Content *ContentArtifact
	Image   *ImageArtifact
	Launch  *LaunchArtifact
	Samples []domain.PerformanceSample
	Update  *UpdateArtifact
}

// Validate checks that the artifact payload matches its kind.
func (a *Artifact) Validate() error {
	switch a.Kind {
	case domain.ExecutorContent:
		if a.Content == nil || a.Content.Headline == "" {
			return errors.New("content artifact missing headline")
		}
	case domain.ExecutorVisual:
		if a.Image == nil || a.Image.URL == "" {
			return errors.New("image artifact missing url")
		}
	case domain.ExecutorLaunch:
		if a.Launch == nil || len(a.Launch.ExternalIDs) == 0 {
			return errors.New("launch artifact missing external ids")
		}
	case domain.ExecutorMetrics:
		if a.Samples == nil {
			return errors.New("metrics artifact missing samples")
		}
	case domain.ExecutorUpdate:
		if a.Update == nil {
			return errors.New("update artifact missing change list")
		}
	default:
		return errors.New("unknown artifact kind")
	}
	return nil
}

// Executor is the uniform contract every pluggable task agent
// implements. Execute returns either an artifact or an error classified
// as domain.RetryableError or domain.TerminalError; the orchestrator
// consults that classification to choose between backoff and failing the
// campaign.
type Executor interface {
	Kind() domain.ExecutorKind
	Execute(ctx context.Context, in ExecutionInput) (*Artifact, error)
}

package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// SimulatedPlatform stands in for a real ad platform when credentials
// are absent. It keeps launched campaigns in memory and produces
// plausible insight numbers, which is enough to exercise the whole
// lifecycle locally.
type SimulatedPlatform struct {
	platform domain.Platform

	mu       sync.Mutex
	launched map[string]string // campaign id -> external id
	paused   map[string]bool
	rng      *rand.Rand
}

func NewSimulatedPlatform(p domain.Platform) *SimulatedPlatform {
	return &SimulatedPlatform{
		platform: p,
		launched: make(map[string]string),
		paused:   make(map[string]bool),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulatedPlatform) Platform() domain.Platform { return s.platform }

// Launch is idempotent per campaign: relaunching returns the id minted
// the first time.
func (s *SimulatedPlatform) Launch(_ context.Context, c *domain.Campaign, _ *domain.Creative) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.launched[c.ID]; ok {
		return id, nil
	}
	id := fmt.Sprintf("sim-%s-%s", s.platform, uuid.NewString()[:8])
	s.launched[c.ID] = id
	return id, nil
}

func (s *SimulatedPlatform) Pause(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[externalID] = true
	return nil
}

func (s *SimulatedPlatform) Resume(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paused, externalID)
	return nil
}

func (s *SimulatedPlatform) Apply(_ context.Context, _ string, _ []domain.Change) error {
	return nil
}

// Insights fabricates a performance window. Paused campaigns report
// zeros, which is what a halted campaign should show.
func (s *SimulatedPlatform) Insights(_ context.Context, externalID string, _ time.Time) (*port.Insights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused[externalID] {
		return &port.Insights{}, nil
	}
	impressions := 2000 + s.rng.Int63n(8000)
	clicks := impressions * (10 + s.rng.Int63n(30)) / 1000 // ctr 1-4%
	spend := clicks * (80 + s.rng.Int63n(160))             // cpc 80-240 cents
	conversions := clicks / (8 + s.rng.Int63n(12))
	revenue := conversions * (2000 + s.rng.Int63n(4000))
	return &port.Insights{
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       spend,
		Conversions: conversions,
		Revenue:     revenue,
	}, nil
}

// SimulatedGenerator produces templated copy and placeholder images, for
// runs without an OpenRouter key.
type SimulatedGenerator struct{}

func (SimulatedGenerator) GenerateCopy(_ context.Context, brief port.CopyBrief) (*port.AdCopy, error) {
	angle := "Discover"
	if brief.PriorHeadline != "" {
		angle = "Rethink"
	}
	return &port.AdCopy{
		Headline:     fmt.Sprintf("%s %s today", angle, brief.ProductName),
		Description:  fmt.Sprintf("%s built for %s. Try it now.", brief.ProductName, brief.Objective),
		CallToAction: "Learn More",
	}, nil
}

func (SimulatedGenerator) GenerateImage(_ context.Context, _ string) (string, error) {
	return "https://placehold.co/1200x628/png?text=" + uuid.NewString()[:8], nil
}

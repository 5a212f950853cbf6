package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"happy path start", StatusCreated, StatusContentGenerating, true},
		{"content to visual", StatusContentGenerating, StatusVisualGenerating, true},
		{"visual to creative gate", StatusVisualGenerating, StatusPendingCreativeApproval, true},
		{"gates disabled skip to launch", StatusVisualGenerating, StatusLaunching, true},
		{"creative approved", StatusPendingCreativeApproval, StatusPendingBudgetApproval, true},
		{"creative rejected regenerates", StatusPendingCreativeApproval, StatusContentGenerating, true},
		{"budget approved", StatusPendingBudgetApproval, StatusLaunching, true},
		{"launch to active", StatusLaunching, StatusActive, true},
		{"active to optimizing", StatusActive, StatusOptimizing, true},
		{"optimizing settles", StatusOptimizing, StatusActive, true},
		{"active completes", StatusActive, StatusCompleted, true},

		{"no state skipping", StatusCreated, StatusVisualGenerating, false},
		{"no going backwards", StatusActive, StatusLaunching, false},
		{"created cannot complete", StatusCreated, StatusCompleted, false},

		{"fail from anywhere", StatusContentGenerating, StatusFailed, true},
		{"fail from active", StatusActive, StatusFailed, true},
		{"pause from active", StatusActive, StatusPaused, true},
		{"halt from optimizing", StatusOptimizing, StatusHalted, true},
		{"pause mid-generation", StatusContentGenerating, StatusPaused, true},

		{"no pause while paused", StatusPaused, StatusPaused, false},
		{"no halt while paused", StatusPaused, StatusHalted, false},
		{"no pause while halted", StatusHalted, StatusPaused, false},

		{"resume restores active", StatusPaused, StatusActive, true},
		{"resume restores mid-workflow state", StatusPaused, StatusPendingBudgetApproval, true},
		{"halted resumes", StatusHalted, StatusActive, true},
		{"resume cannot complete", StatusPaused, StatusCompleted, false},
		{"halted can still fail", StatusHalted, StatusFailed, true},

		{"completed is terminal", StatusCompleted, StatusActive, false},
		{"failed is terminal", StatusFailed, StatusCreated, false},
		{"terminal cannot pause", StatusCompleted, StatusPaused, false},
		{"terminal cannot re-fail", StatusFailed, StatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
				"%s -> %s", tt.from, tt.to)
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusHalted.Terminal())
	assert.False(t, StatusActive.Terminal())

	assert.True(t, StatusActive.Running())
	assert.True(t, StatusOptimizing.Running())
	assert.False(t, StatusPaused.Running())
	assert.False(t, StatusLaunching.Running())
}

func TestPlatformEach(t *testing.T) {
	assert.Equal(t, []Platform{PlatformMeta}, PlatformMeta.Each())
	assert.Equal(t, []Platform{PlatformMeta, PlatformGoogle}, PlatformBoth.Each())
	assert.False(t, Platform("tiktok").Valid())
}

func TestExternalIDRoundTrip(t *testing.T) {
	c := &Campaign{}
	assert.Empty(t, c.ExternalID(PlatformMeta))
	c.SetExternalID(PlatformMeta, "m1")
	c.SetExternalID(PlatformGoogle, "g1")
	assert.Equal(t, "m1", c.ExternalID(PlatformMeta))
	assert.Equal(t, "g1", c.ExternalID(PlatformGoogle))
	assert.Empty(t, c.ExternalID(PlatformBoth))
}

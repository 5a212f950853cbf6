package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testThresholds() Thresholds {
	return Thresholds{CTRMin: 0.02, CPCMax: 200, ROASMin: 3.0}
}

func TestSampleDerive(t *testing.T) {
	s := PerformanceSample{Impressions: 1000, Clicks: 30, Spend: 4500, Revenue: 18000}
	s.Derive()
	assert.InDelta(t, 0.03, s.CTR, 1e-9)
	assert.Equal(t, int64(150), s.CPC)
	assert.InDelta(t, 4.0, s.ROAS, 1e-9)

	// No traffic leaves the rates at zero instead of dividing by zero.
	var empty PerformanceSample
	empty.Derive()
	assert.Zero(t, empty.CTR)
	assert.Zero(t, empty.CPC)
	assert.Zero(t, empty.ROAS)
}

// Rates must be recomputed from aggregated counters, not averaged across
// samples: a tiny sample with an extreme rate should barely move the
// window.
func TestSummarizeRecomputesRates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := []PerformanceSample{
		{Impressions: 100000, Clicks: 2000, Spend: 200000, Revenue: 800000, Timestamp: base},
		{Impressions: 10, Clicks: 9, Spend: 90, Revenue: 0, Timestamp: base.Add(time.Hour)},
	}
	sum := Summarize(samples)
	assert.Equal(t, 2, sum.Samples)
	assert.Equal(t, int64(100010), sum.Impressions)
	assert.InDelta(t, 2009.0/100010.0, sum.CTR, 1e-9)
	assert.Equal(t, int64(200090)/int64(2009), sum.CPC)
	assert.Equal(t, base, sum.From)
	assert.Equal(t, base.Add(time.Hour), sum.To)

	assert.Zero(t, Summarize(nil).Samples)
}

func TestHealthFor(t *testing.T) {
	th := testThresholds()

	assert.Equal(t, HealthGreen, HealthFor(0.04, 100, 5.0, th))

	// Hard breaches read red.
	assert.Equal(t, HealthRed, HealthFor(0.01, 100, 5.0, th))
	assert.Equal(t, HealthRed, HealthFor(0.04, 250, 5.0, th))
	assert.Equal(t, HealthRed, HealthFor(0.04, 100, 2.0, th))

	// Drifting toward a breach reads yellow: CTR under 1.5x the floor or
	// CPC above 0.8x the ceiling.
	assert.Equal(t, HealthYellow, HealthFor(0.025, 100, 5.0, th))
	assert.Equal(t, HealthYellow, HealthFor(0.04, 170, 5.0, th))
}

func TestSummaryBreaches(t *testing.T) {
	th := testThresholds()

	healthy := Summary{Impressions: 1000, CTR: 0.04, CPC: 100, ROAS: 5.0}
	assert.Empty(t, healthy.Breaches(th))

	bad := Summary{Impressions: 1000, CTR: 0.01, CPC: 300, ROAS: 1.0}
	assert.Len(t, bad.Breaches(th), 3)

	// A window with no traffic has nothing to optimize.
	idle := Summary{}
	assert.Nil(t, idle.Breaches(th))
}

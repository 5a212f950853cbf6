package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpilot/internal/config/configs"
	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

func testOptimizerConfig() configs.Optimizer {
	return configs.Optimizer{
		CTRThreshold:             0.02,
		CPCThreshold:             200,
		ROASThreshold:            3.0,
		Cooldown:                 time.Hour,
		LookbackSamples:          12,
		LookbackHours:            24,
		TickInterval:             time.Hour,
		MaxConcurrentEvaluations: 4,
	}
}

// updateStub echoes the proposed change set back as applied.
func updateStub() *stubExecutor {
	return &stubExecutor{kind: domain.ExecutorUpdate, fn: func(_ context.Context, in port.ExecutionInput) (*port.Artifact, error) {
		return &port.Artifact{Kind: domain.ExecutorUpdate, Update: &port.UpdateArtifact{Applied: in.Changes}}, nil
	}}
}

func metricsStub(samples ...domain.PerformanceSample) *stubExecutor {
	return &stubExecutor{kind: domain.ExecutorMetrics, fn: func(_ context.Context, _ port.ExecutionInput) (*port.Artifact, error) {
		return &port.Artifact{Kind: domain.ExecutorMetrics, Samples: samples}, nil
	}}
}

func newOptimizerRig(t *testing.T, update, metrics *stubExecutor) (*rig, *Optimizer) {
	t.Helper()
	cfg := testWorkflowConfig()
	cfg.HumanApprovalRequired = false
	r := newRig(t, cfg)
	opt := NewOptimizer(r.store, r.orch, update, metrics, testOptimizerConfig(), r.locks, testLogger())
	return r, opt
}

// sample appends one performance observation with rates pre-derived.
func sample(t *testing.T, r *rig, campaignID string, impressions, clicks, cents, revenue int64, at time.Time) {
	t.Helper()
	s := &domain.PerformanceSample{
		CampaignID:  campaignID,
		Platform:    domain.PlatformMeta,
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       cents,
		Revenue:     revenue,
		Timestamp:   at,
	}
	s.Derive()
	require.NoError(t, r.store.AppendSample(context.Background(), s))
}

func TestEvaluateAppliesChangesOnBreach(t *testing.T) {
	ctx := context.Background()
	r, opt := newOptimizerRig(t, updateStub(), metricsStub())
	c := activeCampaign(t, r, 20000, 100000)

	// CTR 0.5%, CPC 300, ROAS 1.0: every KPI in breach.
	sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC().Add(-time.Hour))

	record, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Applied)
	assert.Empty(t, record.Error)

	kinds := make(map[domain.ChangeKind]bool)
	for _, ch := range record.Changes {
		kinds[ch.Kind] = true
	}
	assert.True(t, kinds[domain.ChangeContentRefresh])
	assert.True(t, kinds[domain.ChangeAudienceNarrowing])
	assert.True(t, kinds[domain.ChangeBidAdjustment])
	assert.True(t, kinds[domain.ChangeBudgetReallocation])

	fresh, err := r.orch.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, fresh.Status)
	require.NotNil(t, fresh.LastOptimizedAt)
}

func TestEvaluateRecordsHealthyNoOp(t *testing.T) {
	ctx := context.Background()
	r, opt := newOptimizerRig(t, updateStub(), metricsStub())
	c := activeCampaign(t, r, 20000, 100000)

	// CTR 4%, CPC 50, ROAS 5: comfortably inside every threshold.
	sample(t, r, c.ID, 10000, 400, 20000, 100000, time.Now().UTC().Add(-time.Hour))

	record, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Applied)
	assert.Equal(t, "kpis healthy", record.TriggerReason)
	assert.Empty(t, record.Changes)

	// The no-op still lands in the audit trail.
	opts, err := r.store.ListOptimizations(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	fresh, err := r.orch.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.LastOptimizedAt)
}

func TestCooldownBlocksReapply(t *testing.T) {
	ctx := context.Background()
	r, opt := newOptimizerRig(t, updateStub(), metricsStub())
	c := activeCampaign(t, r, 20000, 100000)
	sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC().Add(-time.Hour))

	first, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.False(t, second.Applied)
	assert.Equal(t, "cooldown", second.TriggerReason)

	// The operator override ignores the cooldown and applies again.
	forced, err := opt.ForceOptimize(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, forced)
	assert.True(t, forced.Applied)
}

// Concurrent ticks racing on the same unhealthy campaign must apply
// exactly one change set: the first evaluation wins, the rest observe
// either the in-flight optimization or the cooldown.
func TestConcurrentEvaluationsApplyOnce(t *testing.T) {
	ctx := context.Background()
	slow := &stubExecutor{kind: domain.ExecutorUpdate, fn: func(_ context.Context, in port.ExecutionInput) (*port.Artifact, error) {
		time.Sleep(20 * time.Millisecond)
		return &port.Artifact{Kind: domain.ExecutorUpdate, Update: &port.UpdateArtifact{Applied: in.Changes}}, nil
	}}
	r, opt := newOptimizerRig(t, slow, metricsStub())
	c := activeCampaign(t, r, 20000, 100000)
	sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC().Add(-time.Hour))

	var wg sync.WaitGroup
	for _iter := 0; _iter < 6; _iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := opt.Evaluate(ctx, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	opts, err := r.store.ListOptimizations(ctx, c.ID)
	require.NoError(t, err)
	applied := 0
	for _, o := range opts {
		if o.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	fresh, err := r.orch.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, fresh.Status)
}

func TestApplyFailureLeavesCampaignActive(t *testing.T) {
	ctx := context.Background()
	boom := &stubExecutor{kind: domain.ExecutorUpdate, fn: func(_ context.Context, _ port.ExecutionInput) (*port.Artifact, error) {
		return nil, errors.New("platform api down")
	}}
	r, opt := newOptimizerRig(t, boom, metricsStub())
	c := activeCampaign(t, r, 20000, 100000)
	sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC().Add(-time.Hour))

	record, err := opt.Evaluate(ctx, c.ID)
	require.Error(t, err)
	require.NotNil(t, record)
	assert.False(t, record.Applied)
	assert.Contains(t, record.Error, "platform api down")

	// The campaign stays active and, since no cooldown stamp was set,
	// the next tick retries.
	fresh, err := r.orch.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, fresh.Status)
	assert.Nil(t, fresh.LastOptimizedAt)
}

func TestContentRefreshRewritesCreative(t *testing.T) {
	ctx := context.Background()
	refresh := &stubExecutor{kind: domain.ExecutorUpdate, fn: func(_ context.Context, in port.ExecutionInput) (*port.Artifact, error) {
		return &port.Artifact{Kind: domain.ExecutorUpdate, Update: &port.UpdateArtifact{
			Applied: in.Changes,
			Copy:    &port.ContentArtifact{Headline: "A sharper angle", Description: "New pitch.", CallToAction: "Try it"},
		}}, nil
	}}
	r, opt := newOptimizerRig(t, refresh, metricsStub())
	c := activeCampaign(t, r, 20000, 100000)

	// Only CTR breaches, so the proposal includes a content refresh.
	sample(t, r, c.ID, 10000, 50, 5000, 25000, time.Now().UTC().Add(-time.Hour))

	record, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, record.Applied)

	creative, err := r.store.LatestCreative(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, creative)
	assert.Equal(t, "A sharper angle", creative.Headline)
}

func TestEvaluateSkipsNonRunningCampaign(t *testing.T) {
	ctx := context.Background()
	r, opt := newOptimizerRig(t, updateStub(), metricsStub())
	c := r.createCampaign(t)

	record, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCollectMetricsClassifiesSamples(t *testing.T) {
	ctx := context.Background()
	raw := domain.PerformanceSample{
		Platform:    domain.PlatformMeta,
		Impressions: 1000,
		Clicks:      5,
		Spend:       1500,
		Revenue:     1000,
		Timestamp:   time.Now().UTC(),
	}
	r, opt := newOptimizerRig(t, updateStub(), metricsStub(raw))
	c := activeCampaign(t, r, 20000, 100000)

	require.NoError(t, opt.CollectMetrics(ctx, c))

	samples, err := r.store.RecentSamples(ctx, c.ID, 10, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	got := samples[0]
	assert.Equal(t, c.ID, got.CampaignID)
	assert.InDelta(t, 0.005, got.CTR, 1e-9)
	assert.Equal(t, int64(300), got.CPC)
	assert.Equal(t, domain.HealthRed, got.Health)
}

func TestReportSummarizesWindow(t *testing.T) {
	ctx := context.Background()
	r, opt := newOptimizerRig(t, updateStub(), metricsStub())
	c := activeCampaign(t, r, 20000, 100000)
	sample(t, r, c.ID, 10000, 400, 20000, 100000, time.Now().UTC().Add(-2*time.Hour))
	sample(t, r, c.ID, 10000, 400, 20000, 100000, time.Now().UTC().Add(-time.Hour))

	report, err := opt.Report(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Samples)
	assert.Equal(t, int64(20000), report.Summary.Impressions)
	assert.Equal(t, domain.HealthGreen, report.Health)
	assert.Empty(t, report.Breaches)

	// No traffic at all reads green, not red.
	empty := r.createCampaign(t)
	report, err = opt.Report(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthGreen, report.Health)
	assert.Zero(t, report.Summary.Samples)
}

// A campaign halted while its optimization apply is in flight must come
// back as active on resume, not as optimizing, or the control loops
// would skip it forever.
func TestHaltDuringOptimizationResumesActive(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	gated := &stubExecutor{kind: domain.ExecutorUpdate}
	gated.fn = func(_ context.Context, in port.ExecutionInput) (*port.Artifact, error) {
		if gated.calls.Load() == 1 {
			close(started)
			<-release
		}
		return &port.Artifact{Kind: domain.ExecutorUpdate, Update: &port.UpdateArtifact{Applied: in.Changes}}, nil
	}
	r, opt := newOptimizerRig(t, gated, metricsStub())
	c := activeCampaign(t, r, 20000, 100000)
	sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC().Add(-time.Hour))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := opt.Evaluate(ctx, c.ID)
		assert.NoError(t, err)
	}()
	<-started

	// Budget protection strikes while the apply call is out.
	halted, err := r.orch.Halt(ctx, c.ID, "total budget reached")
	require.NoError(t, err)
	require.Equal(t, domain.StatusHalted, halted.Status)
	assert.Equal(t, domain.StatusActive, halted.HaltedFrom)

	close(release)
	<-done

	resumed, err := r.orch.Resume(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, resumed.Status)

	// The next tick evaluates the campaign normally again.
	record, err := opt.Evaluate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Applied)
}

// With no cooldown, a sustained breach gets exactly one applied change
// set per evaluation window.
func TestZeroCooldownAppliesOncePerWindow(t *testing.T) {
	ctx := context.Background()
	wcfg := testWorkflowConfig()
	wcfg.HumanApprovalRequired = false
	r := newRig(t, wcfg)
	cfg := testOptimizerConfig()
	cfg.Cooldown = 0
	opt := NewOptimizer(r.store, r.orch, updateStub(), metricsStub(), cfg, r.locks, testLogger())
	c := activeCampaign(t, r, 20000, 100000)

	for _iter := 0; _iter < 3; _iter++ {
		sample(t, r, c.ID, 10000, 50, 15000, 15000, time.Now().UTC())
		record, err := opt.Evaluate(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.True(t, record.Applied)
	}

	opts, err := r.store.ListOptimizations(ctx, c.ID)
	require.NoError(t, err)
	applied := 0
	for _, o := range opts {
		if o.Applied {
			applied++
		}
	}
	assert.Equal(t, 3, applied)
}

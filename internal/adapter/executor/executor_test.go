package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
	"adpilot/internal/resilience"
)

func testBreakers() *resilience.Group {
	return resilience.NewGroup(5, time.Minute)
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:          "c1",
		Name:        "Test",
		Platform:    domain.PlatformMeta,
		Objective:   "conversions",
		ProductName: "Widget",
		Status:      domain.StatusActive,
	}
}

type fakeCopyGen struct {
	copy *port.AdCopy
	err  error
	last port.CopyBrief
}

func (f *fakeCopyGen) GenerateCopy(_ context.Context, brief port.CopyBrief) (*port.AdCopy, error) {
	f.last = brief
	return f.copy, f.err
}

type fakeImageGen struct {
	url string
	err error
}

func (f *fakeImageGen) GenerateImage(context.Context, string) (string, error) {
	return f.url, f.err
}

// fakePlatform records calls and serves canned responses.
type fakePlatform struct {
	platform    domain.Platform
	launchID    string
	launchErr   error
	launchCalls int
	insights    *port.Insights
	insightsErr error
	applied     []domain.Change
	applyErr    error
}

func (f *fakePlatform) Platform() domain.Platform { return f.platform }

func (f *fakePlatform) Launch(context.Context, *domain.Campaign, *domain.Creative) (string, error) {
	f.launchCalls++
	return f.launchID, f.launchErr
}

func (f *fakePlatform) Pause(context.Context, string) error  { return nil }
func (f *fakePlatform) Resume(context.Context, string) error { return nil }

func (f *fakePlatform) Apply(_ context.Context, _ string, changes []domain.Change) error {
	f.applied = append(f.applied, changes...)
	return f.applyErr
}

func (f *fakePlatform) Insights(context.Context, string, time.Time) (*port.Insights, error) {
	return f.insights, f.insightsErr
}

func TestContentExecute(t *testing.T) {
	gen := &fakeCopyGen{copy: &port.AdCopy{Headline: "Buy the Widget", Description: "It widgets.", CallToAction: "Shop now"}}
	e := NewContent(gen, testBreakers())

	art, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: testCampaign()})
	require.NoError(t, err)
	require.NoError(t, art.Validate())
	assert.Equal(t, "Buy the Widget", art.Content.Headline)
	assert.Empty(t, gen.last.PriorHeadline)
}

func TestContentRegenerationPassesPriorHeadline(t *testing.T) {
	gen := &fakeCopyGen{copy: &port.AdCopy{Headline: "Another angle", Description: "d"}}
	e := NewContent(gen, testBreakers())

	_, err := e.Execute(context.Background(), port.ExecutionInput{
		Campaign: testCampaign(),
		Creative: &domain.Creative{Headline: "Rejected headline"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Rejected headline", gen.last.PriorHeadline)
}

func TestContentPolicyFailuresAreTerminal(t *testing.T) {
	cases := map[string]*port.AdCopy{
		"empty headline":    {Headline: ""},
		"headline too long": {Headline: strings.Repeat("x", maxHeadlineLen+1), Description: "d"},
		"description too long": {
			Headline:    "ok",
			Description: strings.Repeat("x", maxDescriptionLen+1),
		},
	}
	for name, copyOut := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewContent(&fakeCopyGen{copy: copyOut}, testBreakers())
			_, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: testCampaign()})
			require.Error(t, err)
			assert.True(t, domain.IsTerminal(err))
		})
	}
}

func TestVisualExecute(t *testing.T) {
	e := NewVisual(&fakeImageGen{url: "https://img.example/a.png"}, testBreakers())
	art, err := e.Execute(context.Background(), port.ExecutionInput{
		Campaign: testCampaign(),
		Creative: &domain.Creative{Headline: "H"},
	})
	require.NoError(t, err)
	require.NoError(t, art.Validate())
	assert.Equal(t, "https://img.example/a.png", art.Image.URL)
	assert.Contains(t, art.Image.Prompt, "Widget")
}

func TestLaunchSkipsAlreadyLaunchedPlatforms(t *testing.T) {
	meta := &fakePlatform{platform: domain.PlatformMeta, launchID: "m-new"}
	google := &fakePlatform{platform: domain.PlatformGoogle, launchID: "g-new"}
	e := NewLaunch([]port.AdPlatform{meta, google}, testBreakers())

	c := testCampaign()
	c.Platform = domain.PlatformBoth
	c.MetaCampaignID = "m-existing" // partial launch from a prior attempt

	art, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: c})
	require.NoError(t, err)
	assert.Equal(t, 0, meta.launchCalls)
	assert.Equal(t, 1, google.launchCalls)
	assert.Equal(t, "m-existing", art.Launch.ExternalIDs[domain.PlatformMeta])
	assert.Equal(t, "g-new", art.Launch.ExternalIDs[domain.PlatformGoogle])
}

func TestLaunchWithoutClientIsTerminal(t *testing.T) {
	e := NewLaunch(nil, testBreakers())
	_, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: testCampaign()})
	require.Error(t, err)
	assert.True(t, domain.IsTerminal(err))
}

func TestMetricsKeepsPartialResults(t *testing.T) {
	meta := &fakePlatform{platform: domain.PlatformMeta, insightsErr: errors.New("rate limited")}
	google := &fakePlatform{
		platform: domain.PlatformGoogle,
		insights: &port.Insights{Impressions: 500, Clicks: 10, Spend: 900, Revenue: 4000},
	}
	e := NewMetrics([]port.AdPlatform{meta, google}, testBreakers(), time.Hour)

	c := testCampaign()
	c.Platform = domain.PlatformBoth
	c.MetaCampaignID = "m1"
	c.GoogleCampaignID = "g1"

	art, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: c})
	require.NoError(t, err)
	require.Len(t, art.Samples, 1)
	assert.Equal(t, domain.PlatformGoogle, art.Samples[0].Platform)
	assert.Equal(t, int64(500), art.Samples[0].Impressions)
}

func TestMetricsAllPlatformsFailing(t *testing.T) {
	meta := &fakePlatform{platform: domain.PlatformMeta, insightsErr: errors.New("down")}
	e := NewMetrics([]port.AdPlatform{meta}, testBreakers(), time.Hour)

	c := testCampaign()
	c.MetaCampaignID = "m1"

	_, err := e.Execute(context.Background(), port.ExecutionInput{Campaign: c})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestUpdateSplitsContentRefreshFromPlatformChanges(t *testing.T) {
	meta := &fakePlatform{platform: domain.PlatformMeta}
	gen := &fakeCopyGen{copy: &port.AdCopy{Headline: "Fresh", Description: "d", CallToAction: "Go"}}
	e := NewUpdate([]port.AdPlatform{meta}, gen, testBreakers())

	c := testCampaign()
	c.MetaCampaignID = "m1"
	changes := []domain.Change{
		{Kind: domain.ChangeContentRefresh, Reason: "stale copy"},
		{Kind: domain.ChangeBidAdjustment, Percent: -15, Reason: "cpc high"},
	}

	art, err := e.Execute(context.Background(), port.ExecutionInput{
		Campaign: c,
		Creative: &domain.Creative{Headline: "Old"},
		Changes:  changes,
	})
	require.NoError(t, err)
	require.NotNil(t, art.Update.Copy)
	assert.Equal(t, "Fresh", art.Update.Copy.Headline)
	assert.Equal(t, "Old", gen.last.PriorHeadline)
	assert.Len(t, art.Update.Applied, 2)

	// Only the bid adjustment reaches the platform.
	require.Len(t, meta.applied, 1)
	assert.Equal(t, domain.ChangeBidAdjustment, meta.applied[0].Kind)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	terminal := domain.Terminal("op", errors.New("bad creds"))
	assert.Same(t, terminal, classify("op", terminal))

	assert.True(t, domain.IsRetryable(classify("op", context.DeadlineExceeded)))
	assert.True(t, domain.IsRetryable(classify("op", resilience.ErrOpen)))
	assert.True(t, domain.IsRetryable(classify("op", errors.New("connection reset"))))

	// Cancellation propagates untouched so callers can recognize it.
	assert.ErrorIs(t, classify("op", context.Canceled), context.Canceled)
}

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeClock lets tests step time instead of sleeping through cool-offs.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(threshold int, coolOff time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, coolOff)
	b.clock = clock.Now
	return b, clock
}

func fail(b *Breaker) error { return b.Do(func() error { return errBoom }) }
func ok(b *Breaker) error   { return b.Do(func() error { return nil }) }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for _iter := 0; _iter < 3; _iter++ {
		require.ErrorIs(t, fail(b), errBoom)
	}
	// Open: calls are rejected without running fn.
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	require.ErrorIs(t, fail(b), errBoom)
	require.ErrorIs(t, fail(b), errBoom)
	require.NoError(t, ok(b))

	// The streak restarted, so two more failures stay under threshold.
	require.ErrorIs(t, fail(b), errBoom)
	require.ErrorIs(t, fail(b), errBoom)
	require.NoError(t, ok(b))
}

func TestBreakerProbeClosesOnSuccess(t *testing.T) {
	b, clock := newTestBreaker(2, time.Minute)
	require.ErrorIs(t, fail(b), errBoom)
	require.ErrorIs(t, fail(b), errBoom)
	require.ErrorIs(t, ok(b), ErrOpen)

	clock.advance(time.Minute)
	require.NoError(t, ok(b))

	// Closed again: calls flow freely.
	require.NoError(t, ok(b))
}

func TestBreakerProbeReopensOnFailure(t *testing.T) {
	b, clock := newTestBreaker(2, time.Minute)
	require.ErrorIs(t, fail(b), errBoom)
	require.ErrorIs(t, fail(b), errBoom)

	clock.advance(time.Minute)
	require.ErrorIs(t, fail(b), errBoom) // probe fails
	require.ErrorIs(t, ok(b), ErrOpen)   // back open for another cool-off

	clock.advance(time.Minute)
	require.NoError(t, ok(b))
}

func TestGroupIsolatesDependencies(t *testing.T) {
	g := NewGroup(1, time.Minute)
	require.ErrorIs(t, fail(g.For("image")), errBoom)
	require.ErrorIs(t, ok(g.For("image")), ErrOpen)

	// The failing image service does not affect the copy breaker.
	require.NoError(t, ok(g.For("copy")))

	// The same name always resolves to the same breaker.
	assert.Same(t, g.For("copy"), g.For("copy"))
}

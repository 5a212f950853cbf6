// Package resilience shields the workflow from misbehaving external
// services.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when a breaker is rejecting calls. Callers treat
// it as a transient fault: the service gets another chance once the
// cool-off passes.
var ErrOpen = errors.New("circuit open")

// Breaker cuts traffic to a failing dependency. Consecutive failures
// past the threshold open it; after the cool-off a single probe call is
// let through, and its outcome decides between closing and re-opening.
type Breaker struct {
	threshold int
	coolOff   time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker tripping after threshold
// consecutive failures and cooling off for the given duration.
func NewBreaker(threshold int, coolOff time.Duration) *Breaker {
	return &Breaker{threshold: threshold, coolOff: coolOff, clock: time.Now}
}

// Do runs fn unless the breaker is open, in which case it returns
// ErrOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if !b.admit() {
		return ErrOpen
	}
	err := fn()
	b.settle(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return true
	}
	if b.probing {
		return false
	}
	if b.clock().Sub(b.openedAt) >= b.coolOff {
		b.probing = true
		return true
	}
	return false
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.clock()
	}
}

// Group hands out one breaker per named dependency, so a dead image
// service cannot trip the breaker guarding the ad platforms.
type Group struct {
	threshold int
	coolOff   time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGroup returns a Group whose breakers share the given settings.
func NewGroup(threshold int, coolOff time.Duration) *Group {
	return &Group{
		threshold: threshold,
		coolOff:   coolOff,
		breakers:  make(map[string]*Breaker),
	}
}

// For returns the breaker for the named dependency, creating it on
// first use.
func (g *Group) For(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	br, ok := g.breakers[name]
	if !ok {
		br = NewBreaker(g.threshold, g.coolOff)
		g.breakers[name] = br
	}
	return br
}

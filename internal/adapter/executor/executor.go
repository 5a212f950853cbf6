// Package executor contains the pluggable task agents the orchestrator
// binds to workflow states. Every executor wraps its external calls in a
// circuit breaker and classifies failures so the retry policy knows
// whether trying again can help.
package executor

import (
	"context"
	"errors"

	"adpilot/internal/core/domain"
	"adpilot/internal/resilience"
)

// classify maps raw client errors onto the retry taxonomy. Timeouts and
// open breakers are transient. Errors the client already classified pass
// through. Anything else is assumed transient; genuinely hopeless
// conditions are the client's job to mark terminal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsTerminal(err) || domain.IsRetryable(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, resilience.ErrOpen) {
		return domain.Retryable(op, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.Retryable(op, err)
}

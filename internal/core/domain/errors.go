package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCampaignNotFound is returned when a campaign id resolves to nothing.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrAlreadyDecided is returned when resolving an approval that is no
	// longer pending.
	ErrAlreadyDecided = errors.New("approval already decided")
	// ErrNoPendingApproval is returned when a gate expects a pending
	// request and none exists.
	ErrNoPendingApproval = errors.New("no pending approval")
	// ErrApprovalPending is returned by approval creation when the
	// campaign already carries a pending request for the subject; the
	// caller reuses the existing row.
	ErrApprovalPending = errors.New("approval already pending")
	// ErrConcurrentModification signals an optimistic version mismatch on
	// commit; callers retry the whole advance.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrHalted is returned when an operation is attempted on a campaign
	// stopped by the budget controller.
	ErrHalted = errors.New("campaign halted by budget controller")
)

// RetryableError wraps an executor failure that is worth retrying with
// backoff: transient network faults, rate limits, timeouts.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v (retryable)", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// TerminalError wraps an executor failure that retrying cannot fix:
// invalid credentials, content rejected by platform policy. The campaign
// moves to failed and the error is surfaced for operator attention.
type TerminalError struct {
	Op  string
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: %v (terminal)", e.Op, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// Retryable builds a RetryableError.
func Retryable(op string, err error) error {
	return &RetryableError{Op: op, Err: err}
}

// Terminal builds a TerminalError.
func Terminal(op string, err error) error {
	return &TerminalError{Op: op, Err: err}
}

// IsRetryable reports whether err is classified as retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsTerminal reports whether err is classified as terminal.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch pipeline
var (
	// ErrDuplicateReminder is returned by the store when an insert collides
	// with an existing live reminder. The executor treats it as
	// already-handled, not as a failure.
	ErrDuplicateReminder = errors.New("live reminder already exists for this job and type")

	// ErrReminderTerminal rejects transitions out of dismissed/completed
	ErrReminderTerminal = errors.New("reminder is already dismissed or completed")

	// ErrUnknownRuleKind is returned for a rule kind with no executor
	ErrUnknownRuleKind = errors.New("unknown automation rule kind")
)

// ValidationError marks a malformed rule configuration. The rule is skipped
// and reported; other rules are unaffected.
type ValidationError struct {
	RuleID uint
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule %d: invalid configuration: %s", e.RuleID, e.Reason)
}

// CollaboratorError wraps a failure (or timeout) of an external collaborator:
// the generation service or the notification sink. Per-target, non-fatal.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// DataGatewayError wraps a store read/write failure. It aborts the current
// rule's remaining work only.
type DataGatewayError struct {
	Op  string
	Err error
}

func (e *DataGatewayError) Error() string {
	return fmt.Sprintf("data gateway: %s: %v", e.Op, e.Err)
}

func (e *DataGatewayError) Unwrap() error { return e.Err }

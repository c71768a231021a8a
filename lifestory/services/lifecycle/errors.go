// lifestory/services/lifecycle/errors.go
package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for the concurrency and aggregation taxonomy. Callers match
// with errors.Is; routes translate each member to an HTTP status.
var (
	// ErrStaleState: optimistic-concurrency check failed on a user-initiated
	// transition. The caller should re-fetch and retry; the core never does.
	ErrStaleState = errors.New("stale state: entity was modified since it was read")

	// ErrConcurrentModification: the approved-draft set changed twice while
	// an aggregation was running.
	ErrConcurrentModification = errors.New("concurrent modification: approved drafts changed during aggregation")

	// ErrInsufficientApprovedDrafts: aggregation requested with no approved drafts.
	ErrInsufficientApprovedDrafts = errors.New("insufficient approved drafts for aggregation")

	// ErrExternalCapabilityTimeout: the summarization capability failed or
	// timed out. Aggregation degrades (missing summary/themes) instead of
	// failing, so this value never escapes RequestFullStory.
	ErrExternalCapabilityTimeout = errors.New("external summarization capability timed out")

	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed or missing caller input. Recoverable by
// resubmitting corrected input, never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError is a stage-validator rejection. Carries the current
// and requested states verbatim for the caller.
type InvalidTransitionError struct {
	Kind      string
	Current   string
	Requested string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s: %s", e.Kind, e.Current, e.Requested, e.Reason)
}

// StorageUnavailableError wraps an infrastructure fault. The triggering
// mutation and its history entry both roll back; the caller may retry.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

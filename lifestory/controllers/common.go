// lifestory/controllers/common.go
package controllers

import (
	"errors"

	"lifestory/lifestory/services/lifecycle"
)

// History action vocabulary. One closed set shared by every controller so
// getHistory filters stay meaningful.
const (
	ActionSessionCreated     = "session_created"
	ActionSessionDeleted     = "session_deleted"
	ActionInterviewScheduled = "interview_scheduled"
	ActionStatusChanged      = "status_changed"
	ActionStatusOverridden   = "status_overridden"
	ActionDraftSubmitted     = "draft_submitted"
	ActionStageChanged       = "stage_changed"
	ActionStoryGenerated     = "story_generated"
	ActionConflictResolved   = "conflict_resolved"
)

// wrapStorage classifies an error coming back from a DAO call: domain errors
// pass through verbatim, anything else is an infrastructure fault the caller
// may retry.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *lifecycle.ValidationError
		te *lifecycle.InvalidTransitionError
		se *lifecycle.StorageUnavailableError
	)
	if errors.As(err, &ve) || errors.As(err, &te) || errors.As(err, &se) {
		return err
	}
	if errors.Is(err, lifecycle.ErrStaleState) ||
		errors.Is(err, lifecycle.ErrConcurrentModification) ||
		errors.Is(err, lifecycle.ErrInsufficientApprovedDrafts) ||
		errors.Is(err, lifecycle.ErrNotFound) {
		return err
	}
	return &lifecycle.StorageUnavailableError{Err: err}
}

// lifestory/services/lifecycle/validator.go
package lifecycle

import (
	"fmt"
	"time"

	"lifestory/lifestory/sources/psql/models"
)

// TransitionContext carries the derived counts a transition rule may need.
// The validator itself is pure: callers collect the counts from storage,
// the validator only decides.
type TransitionContext struct {
	CompletedInterviews  int
	UnresolvedInterviews int // still scheduled or in_progress
	ReviewedOrLaterDrafts int
	StoryVersions        int // stories generated for the session

	// interview completion check
	ScheduledAt time.Time
	CompletedAt time.Time
}

// ValidateSession gates the session status machine. Statuses only move
// forward; regressions need the explicit override command, which bypasses
// this function on purpose.
func ValidateSession(current, requested models.SessionStatus, tc TransitionContext) error {
	reject := func(reason string) error {
		return &InvalidTransitionError{
			Kind:      string(models.SubjectSession),
			Current:   string(current),
			Requested: string(requested),
			Reason:    reason,
		}
	}

	switch current {
	case models.SessionScheduled:
		if requested != models.SessionInProgress {
			return reject("only in_progress is reachable from scheduled")
		}
		if tc.CompletedInterviews < 1 {
			return reject("requires at least one completed interview")
		}
		return nil
	case models.SessionInProgress:
		if requested != models.SessionPendingReview {
			return reject("only pending_review is reachable from in_progress")
		}
		if tc.UnresolvedInterviews > 0 {
			return reject(fmt.Sprintf("%d interview(s) still unresolved", tc.UnresolvedInterviews))
		}
		if tc.ReviewedOrLaterDrafts < 1 {
			return reject("requires at least one draft in reviewed stage or later")
		}
		return nil
	case models.SessionPendingReview:
		if requested != models.SessionCompleted {
			return reject("only completed is reachable from pending_review")
		}
		if tc.StoryVersions < 1 {
			return reject("requires at least one generated full life story")
		}
		return nil
	case models.SessionCompleted:
		return reject("completed is terminal")
	}
	return reject("unknown current status")
}

// ValidateInterview enforces the forward-only interview machine with a side
// exit to cancelled from any non-terminal state. Completion additionally
// checks that the completion instant is not before the scheduled slot.
func ValidateInterview(current, requested models.InterviewStatus, tc TransitionContext) error {
	reject := func(reason string) error {
		return &InvalidTransitionError{
			Kind:      string(models.SubjectInterview),
			Current:   string(current),
			Requested: string(requested),
			Reason:    reason,
		}
	}

	if current == models.InterviewCompleted || current == models.InterviewCancelled {
		return reject("terminal status")
	}
	if requested == models.InterviewCancelled {
		return nil
	}

	order := map[models.InterviewStatus]int{
		models.InterviewScheduled:  0,
		models.InterviewInProgress: 1,
		models.InterviewCompleted:  2,
	}
	cur, ok := order[current]
	if !ok {
		return reject("unknown current status")
	}
	req, ok := order[requested]
	if !ok {
		return reject("unknown requested status")
	}
	if req <= cur {
		return reject("interviews only move forward")
	}
	if requested == models.InterviewCompleted && tc.CompletedAt.Before(tc.ScheduledAt) {
		return reject("cannot complete before the scheduled time")
	}
	return nil
}

// ValidateDraft enforces transcribed -> reviewed -> approved one step at a
// time. rejected is reachable from transcribed or reviewed and is terminal
// for that version; a fresh version starts the chain over.
func ValidateDraft(current, requested models.DraftStage) error {
	reject := func(reason string) error {
		return &InvalidTransitionError{
			Kind:      string(models.SubjectDraft),
			Current:   string(current),
			Requested: string(requested),
			Reason:    reason,
		}
	}

	switch current {
	case models.DraftTranscribed:
		if requested == models.DraftReviewed || requested == models.DraftRejected {
			return nil
		}
		return reject("only reviewed or rejected is reachable from transcribed")
	case models.DraftReviewed:
		if requested == models.DraftApproved || requested == models.DraftRejected {
			return nil
		}
		return reject("only approved or rejected is reachable from reviewed")
	case models.DraftApproved:
		return reject("approved is terminal")
	case models.DraftRejected:
		return reject("rejected is terminal for this version; submit a new version instead")
	}
	return reject("unknown current stage")
}

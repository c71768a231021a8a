package lifecycle

import (
	"sync"
	"testing"
	"time"

	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionRules(t *testing.T) {
	tests := []struct {
		name      string
		current   models.SessionStatus
		requested models.SessionStatus
		tc        TransitionContext
		ok        bool
	}{
		{
			name:      "scheduled to in_progress with a completed interview",
			current:   models.SessionScheduled,
			requested: models.SessionInProgress,
			tc:        TransitionContext{CompletedInterviews: 1},
			ok:        true,
		},
		{
			name:      "scheduled to in_progress without completed interviews",
			current:   models.SessionScheduled,
			requested: models.SessionInProgress,
			tc:        TransitionContext{},
			ok:        false,
		},
		{
			name:      "scheduled cannot skip to pending_review",
			current:   models.SessionScheduled,
			requested: models.SessionPendingReview,
			tc:        TransitionContext{CompletedInterviews: 3},
			ok:        false,
		},
		{
			name:      "in_progress to pending_review with unresolved interview",
			current:   models.SessionInProgress,
			requested: models.SessionPendingReview,
			tc:        TransitionContext{CompletedInterviews: 2, UnresolvedInterviews: 1, ReviewedOrLaterDrafts: 1},
			ok:        false,
		},
		{
			name:      "in_progress to pending_review without reviewed drafts",
			current:   models.SessionInProgress,
			requested: models.SessionPendingReview,
			tc:        TransitionContext{CompletedInterviews: 2},
			ok:        false,
		},
		{
			name:      "in_progress to pending_review when everything resolved",
			current:   models.SessionInProgress,
			requested: models.SessionPendingReview,
			tc:        TransitionContext{CompletedInterviews: 2, ReviewedOrLaterDrafts: 1},
			ok:        true,
		},
		{
			name:      "pending_review to completed requires a story",
			current:   models.SessionPendingReview,
			requested: models.SessionCompleted,
			tc:        TransitionContext{},
			ok:        false,
		},
		{
			name:      "pending_review to completed with a story",
			current:   models.SessionPendingReview,
			requested: models.SessionCompleted,
			tc:        TransitionContext{StoryVersions: 1},
			ok:        true,
		},
		{
			name:      "completed is terminal",
			current:   models.SessionCompleted,
			requested: models.SessionInProgress,
			tc:        TransitionContext{CompletedInterviews: 5},
			ok:        false,
		},
		{
			name:      "no regression from in_progress",
			current:   models.SessionInProgress,
			requested: models.SessionScheduled,
			tc:        TransitionContext{},
			ok:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSession(tt.current, tt.requested, tt.tc)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ite *InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, string(tt.current), ite.Current)
			assert.Equal(t, string(tt.requested), ite.Requested)
		})
	}
}

func TestValidateInterviewRules(t *testing.T) {
	scheduled := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		current   models.InterviewStatus
		requested models.InterviewStatus
		completed time.Time
		ok        bool
	}{
		{"scheduled to in_progress", models.InterviewScheduled, models.InterviewInProgress, scheduled, true},
		{"scheduled straight to completed", models.InterviewScheduled, models.InterviewCompleted, scheduled.Add(time.Hour), true},
		{"in_progress to completed", models.InterviewInProgress, models.InterviewCompleted, scheduled.Add(time.Hour), true},
		{"completed before the scheduled slot", models.InterviewScheduled, models.InterviewCompleted, scheduled.Add(-time.Hour), false},
		{"cancel from scheduled", models.InterviewScheduled, models.InterviewCancelled, scheduled, true},
		{"cancel from in_progress", models.InterviewInProgress, models.InterviewCancelled, scheduled, true},
		{"no transition out of completed", models.InterviewCompleted, models.InterviewCancelled, scheduled, false},
		{"no transition out of cancelled", models.InterviewCancelled, models.InterviewInProgress, scheduled, false},
		{"no going backwards", models.InterviewInProgress, models.InterviewScheduled, scheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := TransitionContext{ScheduledAt: scheduled, CompletedAt: tt.completed}
			err := ValidateInterview(tt.current, tt.requested, tc)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				var ite *InvalidTransitionError
				assert.ErrorAs(t, err, &ite)
			}
		})
	}
}

func TestValidateDraftRules(t *testing.T) {
	tests := []struct {
		current   models.DraftStage
		requested models.DraftStage
		ok        bool
	}{
		{models.DraftTranscribed, models.DraftReviewed, true},
		{models.DraftTranscribed, models.DraftRejected, true},
		{models.DraftTranscribed, models.DraftApproved, false}, // no skipping
		{models.DraftReviewed, models.DraftApproved, true},
		{models.DraftReviewed, models.DraftRejected, true},
		{models.DraftReviewed, models.DraftTranscribed, false},
		{models.DraftApproved, models.DraftReviewed, false},
		{models.DraftApproved, models.DraftRejected, false},
		{models.DraftRejected, models.DraftTranscribed, false},
		{models.DraftRejected, models.DraftReviewed, false},
	}

	for _, tt := range tests {
		err := ValidateDraft(tt.current, tt.requested)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.current, tt.requested)
		} else {
			assert.Error(t, err, "%s -> %s", tt.current, tt.requested)
		}
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	var ve *ValidationError

	_, err := ParseSessionStatus("archived")
	require.ErrorAs(t, err, &ve)

	_, err = ParseInterviewType("podcast")
	require.ErrorAs(t, err, &ve)

	_, err = ParseInterviewStatus("paused")
	require.ErrorAs(t, err, &ve)

	_, err = ParseDraftStage("published")
	require.ErrorAs(t, err, &ve)

	_, err = ParsePriorityLevel("urgent")
	require.ErrorAs(t, err, &ve)

	got, err := ParseDraftStage("reviewed")
	require.NoError(t, err)
	assert.Equal(t, models.DraftReviewed, got)
}

func TestEntityLocksSerializePerID(t *testing.T) {
	locks := NewEntityLocks()
	id := uuid.New()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()
			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one writer at a time per id")
}

func TestEntityLocksDistinctIDsDoNotBlock(t *testing.T) {
	locks := NewEntityLocks()

	unlockA := locks.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct id blocked")
	}
}

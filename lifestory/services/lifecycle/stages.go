// lifestory/services/lifecycle/stages.go
package lifecycle

import (
	"fmt"

	"lifestory/lifestory/sources/psql/models"
)

// Parse helpers for the closed status vocabularies. Unrecognized values are
// rejected at the boundary with a ValidationError, never stored or passed
// through.

func ParseSessionStatus(s string) (models.SessionStatus, error) {
	switch models.SessionStatus(s) {
	case models.SessionScheduled, models.SessionInProgress, models.SessionPendingReview, models.SessionCompleted:
		return models.SessionStatus(s), nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown session status %q", s)}
}

func ParsePriorityLevel(s string) (models.PriorityLevel, error) {
	switch models.PriorityLevel(s) {
	case models.PriorityStandard, models.PriorityMedium, models.PriorityHigh:
		return models.PriorityLevel(s), nil
	}
	return "", &ValidationError{Field: "priority_level", Reason: fmt.Sprintf("unknown priority level %q", s)}
}

func ParseInterviewType(s string) (models.InterviewType, error) {
	switch models.InterviewType(s) {
	case models.InterviewPersonalBackground, models.InterviewCareerAchievements,
		models.InterviewRelationshipsFamily, models.InterviewLifeEvents,
		models.InterviewWisdomReflection, models.InterviewFriend:
		return models.InterviewType(s), nil
	}
	return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown interview type %q", s)}
}

func ParseInterviewStatus(s string) (models.InterviewStatus, error) {
	switch models.InterviewStatus(s) {
	case models.InterviewScheduled, models.InterviewInProgress, models.InterviewCompleted, models.InterviewCancelled:
		return models.InterviewStatus(s), nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown interview status %q", s)}
}

func ParseDraftStage(s string) (models.DraftStage, error) {
	switch models.DraftStage(s) {
	case models.DraftTranscribed, models.DraftReviewed, models.DraftApproved, models.DraftRejected:
		return models.DraftStage(s), nil
	}
	return "", &ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown draft stage %q", s)}
}

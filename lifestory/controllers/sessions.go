// lifestory/controllers/sessions.go
package controllers

import (
	"context"
	"fmt"
	"time"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionsController is the orchestrator for session and interview commands.
// Every mutation runs under the per-aggregate lock and a single transaction
// so the entity change and its history entry commit or fail together.
type SessionsController struct {
	db         *gorm.DB
	sessions   *dao.SessionDAO
	interviews *dao.InterviewDAO
	drafts     *dao.DraftDAO
	stories    *dao.StoryDAO
	history    *dao.HistoryDAO
	clock      lifecycle.Clock
	locks      *lifecycle.EntityLocks
}

func NewSessionsController(
	db *gorm.DB,
	sessions *dao.SessionDAO,
	interviews *dao.InterviewDAO,
	drafts *dao.DraftDAO,
	stories *dao.StoryDAO,
	history *dao.HistoryDAO,
	clock lifecycle.Clock,
	locks *lifecycle.EntityLocks,
) *SessionsController {
	return &SessionsController{
		db:         db,
		sessions:   sessions,
		interviews: interviews,
		drafts:     drafts,
		stories:    stories,
		history:    history,
		clock:      clock,
		locks:      locks,
	}
}

// NewSessionPayload creates a Session when scheduleInterview is called
// without an existing session id.
type NewSessionPayload struct {
	ClientName        string                    `json:"client_name"`
	ClientContact     string                    `json:"client_contact"`
	PriorityLevel     string                    `json:"priority_level"`
	EstimatedDuration int                       `json:"estimated_duration"`
	Preferences       models.SessionPreferences `json:"preferences"`
}

// InterviewSpec is the caller's description of one interview slot. Date and
// Time stay strings at the boundary; the controller owns parsing and the
// past-date check against the injected clock.
type InterviewSpec struct {
	Type        string  `json:"type"`
	Date        string  `json:"date"` // 2006-01-02
	Time        string  `json:"time"` // 15:04
	Duration    int     `json:"duration"`
	Location    string  `json:"location"`
	Interviewer *string `json:"interviewer,omitempty"`
}

type ScheduleInterviewRequest struct {
	SessionID  *uuid.UUID         `json:"session_id,omitempty"`
	NewSession *NewSessionPayload `json:"new_session,omitempty"`
	Interview  InterviewSpec      `json:"interview"`
}

// ScheduleInterview creates or attaches to a session and schedules one
// interview. Date/time are required and must not be in the past, evaluated
// against the orchestrator clock rather than anything the client declares.
func (c *SessionsController) ScheduleInterview(ctx context.Context, actor string, req ScheduleInterviewRequest) (*models.Interview, error) {
	if req.Interview.Date == "" {
		return nil, &lifecycle.ValidationError{Field: "date", Reason: "required"}
	}
	if req.Interview.Time == "" {
		return nil, &lifecycle.ValidationError{Field: "time", Reason: "required"}
	}
	scheduledAt, err := time.Parse("2006-01-02 15:04", req.Interview.Date+" "+req.Interview.Time)
	if err != nil {
		return nil, &lifecycle.ValidationError{Field: "date", Reason: "not a valid date/time"}
	}
	if scheduledAt.Before(c.clock.Now()) {
		return nil, &lifecycle.ValidationError{Field: "date", Reason: "cannot schedule in the past"}
	}
	ivType, err := lifecycle.ParseInterviewType(req.Interview.Type)
	if err != nil {
		return nil, err
	}

	var session *models.Session
	switch {
	case req.SessionID != nil:
		session, err = c.sessions.GetSessionByID(ctx, *req.SessionID)
		if err != nil {
			return nil, wrapStorage(err)
		}
		if session == nil {
			return nil, lifecycle.ErrNotFound
		}
	case req.NewSession != nil:
		if req.NewSession.ClientName == "" {
			return nil, &lifecycle.ValidationError{Field: "client_name", Reason: "required"}
		}
		priority := models.PriorityStandard
		if req.NewSession.PriorityLevel != "" {
			priority, err = lifecycle.ParsePriorityLevel(req.NewSession.PriorityLevel)
			if err != nil {
				return nil, err
			}
		}
		session = &models.Session{
			ClientName:           req.NewSession.ClientName,
			ClientContact:        req.NewSession.ClientContact,
			Status:               models.SessionScheduled,
			PriorityLevel:        priority,
			EstimatedDurationMin: req.NewSession.EstimatedDuration,
			Preferences:          req.NewSession.Preferences,
		}
	default:
		return nil, &lifecycle.ValidationError{Field: "session_id", Reason: "either session_id or new_session is required"}
	}

	interview := &models.Interview{
		SessionID:   session.ID, // zero for a brand-new session, filled below
		Type:        ivType,
		ScheduledAt: scheduledAt,
		DurationMin: req.Interview.Duration,
		Location:    req.Interview.Location,
		Status:      models.InterviewScheduled,
		Interviewer: req.Interview.Interviewer,
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if session.ID == uuid.Nil {
			if err := c.sessions.WithTx(tx).CreateSession(ctx, session); err != nil {
				return err
			}
			if err := c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
				SubjectType: models.SubjectSession,
				SubjectID:   session.ID,
				Action:      ActionSessionCreated,
				NewValue:    string(session.Status),
				Actor:       actor,
				Timestamp:   c.clock.Now(),
			}); err != nil {
				return err
			}
		}
		interview.SessionID = session.ID
		if err := c.interviews.WithTx(tx).CreateInterview(ctx, interview); err != nil {
			return err
		}
		return c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType: models.SubjectInterview,
			SubjectID:   interview.ID,
			Action:      ActionInterviewScheduled,
			NewValue:    string(interview.Status),
			Actor:       actor,
			Timestamp:   c.clock.Now(),
		})
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return interview, nil
}

// InterviewOutcome is the payload of recordInterviewResult.
type InterviewOutcome struct {
	Status      string  `json:"status"`
	Interviewer *string `json:"interviewer,omitempty"`
}

// RecordInterviewResult moves an interview through its machine via the
// validator. Completion stamps the orchestrator clock and is rejected when
// that instant precedes the scheduled slot.
func (c *SessionsController) RecordInterviewResult(ctx context.Context, actor string, interviewID uuid.UUID, outcome InterviewOutcome) (*models.Interview, error) {
	requested, err := lifecycle.ParseInterviewStatus(outcome.Status)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(interviewID)
	defer unlock()

	interview, err := c.interviews.GetInterviewByID(ctx, interviewID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if interview == nil {
		return nil, lifecycle.ErrNotFound
	}

	now := c.clock.Now()
	tc := lifecycle.TransitionContext{
		ScheduledAt: interview.ScheduledAt,
		CompletedAt: now,
	}
	if err := lifecycle.ValidateInterview(interview.Status, requested, tc); err != nil {
		return nil, err
	}

	upd := dao.InterviewStatusUpdate{
		Status:      requested,
		Interviewer: outcome.Interviewer,
	}
	if requested == models.InterviewCompleted {
		upd.CompletedAt = &now
	}

	previous := interview.Status
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.interviews.WithTx(tx).UpdateInterviewStatus(ctx, interviewID, interview.LockVersion, upd); err != nil {
			return err
		}
		return c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType:   models.SubjectInterview,
			SubjectID:     interviewID,
			Action:        ActionStatusChanged,
			PreviousValue: string(previous),
			NewValue:      string(requested),
			Actor:         actor,
			Timestamp:     now,
		})
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	interview.Status = requested
	interview.LockVersion++
	if upd.CompletedAt != nil {
		interview.CompletedAt = upd.CompletedAt
	}
	if outcome.Interviewer != nil {
		interview.Interviewer = outcome.Interviewer
	}
	return interview, nil
}

// AdvanceSessionStage validates and applies a session status transition,
// collecting the derived counts the rule table needs.
func (c *SessionsController) AdvanceSessionStage(ctx context.Context, actor string, sessionID uuid.UUID, target string) (*models.Session, error) {
	requested, err := lifecycle.ParseSessionStatus(target)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	session, err := c.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}

	counts, err := c.interviews.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	stageCounts, err := c.drafts.CountBySessionAndStage(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	storyCount, err := c.stories.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}

	tc := lifecycle.TransitionContext{
		CompletedInterviews:   counts.Completed,
		UnresolvedInterviews:  counts.Unresolved,
		ReviewedOrLaterDrafts: stageCounts[models.DraftReviewed] + stageCounts[models.DraftApproved],
		StoryVersions:         int(storyCount),
	}
	if err := lifecycle.ValidateSession(session.Status, requested, tc); err != nil {
		return nil, err
	}

	if err := c.applySessionStatus(ctx, actor, session, requested, ActionStatusChanged, ""); err != nil {
		return nil, err
	}
	return session, nil
}

// OverrideSessionStatus is the explicit escape hatch for regressions: it
// bypasses the validator but always records the reason.
func (c *SessionsController) OverrideSessionStatus(ctx context.Context, actor string, sessionID uuid.UUID, target, reason string) (*models.Session, error) {
	requested, err := lifecycle.ParseSessionStatus(target)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, &lifecycle.ValidationError{Field: "reason", Reason: "required for a status override"}
	}

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	session, err := c.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}
	if err := c.applySessionStatus(ctx, actor, session, requested, ActionStatusOverridden, reason); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *SessionsController) applySessionStatus(ctx context.Context, actor string, session *models.Session, requested models.SessionStatus, action, reason string) error {
	previous := session.Status
	now := c.clock.Now()
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.sessions.WithTx(tx).UpdateSessionStatus(ctx, session.ID, session.LockVersion, requested); err != nil {
			return err
		}
		entry := &models.HistoryEntry{
			SubjectType:   models.SubjectSession,
			SubjectID:     session.ID,
			Action:        action,
			PreviousValue: string(previous),
			NewValue:      string(requested),
			Actor:         actor,
			Timestamp:     now,
		}
		if reason != "" {
			entry.NewValue = fmt.Sprintf("%s (%s)", requested, reason)
		}
		return c.history.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return wrapStorage(err)
	}
	session.Status = requested
	session.LockVersion++
	return nil
}

func (c *SessionsController) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := c.sessions.GetSessionByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}
	return session, nil
}

func (c *SessionsController) ListSessions(ctx context.Context, filter dao.ListSessionsFilter) ([]models.Session, int64, error) {
	sessions, total, err := c.sessions.ListSessions(ctx, filter)
	if err != nil {
		return nil, 0, wrapStorage(err)
	}
	return sessions, total, nil
}

// DeleteSession removes the session and everything it owns. The audit log is
// retained; the deletion itself is the session's final history entry.
func (c *SessionsController) DeleteSession(ctx context.Context, actor string, id uuid.UUID) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	session, err := c.sessions.GetSessionByID(ctx, id)
	if err != nil {
		return wrapStorage(err)
	}
	if session == nil {
		return lifecycle.ErrNotFound
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.sessions.WithTx(tx).DeleteSession(ctx, id); err != nil {
			return err
		}
		return c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType:   models.SubjectSession,
			SubjectID:     id,
			Action:        ActionSessionDeleted,
			PreviousValue: string(session.Status),
			Actor:         actor,
			Timestamp:     c.clock.Now(),
		})
	})
	return wrapStorage(err)
}

// SessionStats are the derived metrics the admin screens show per session.
type SessionStats struct {
	SessionID                 uuid.UUID                 `json:"session_id"`
	Status                    models.SessionStatus      `json:"status"`
	TotalInterviews           int                       `json:"total_interviews"`
	CompletedInterviews       int                       `json:"completed_interviews"`
	TotalDrafts               int                       `json:"total_drafts"`
	DraftsByStage             map[models.DraftStage]int `json:"drafts_by_stage"`
	StoryVersions             int                       `json:"story_versions"`
	StoryCompletionPercentage int                       `json:"story_completion_percentage"`
}

// GetSessionStats computes story_completion_percentage as approved drafts
// over total drafts, 0-100 rounded half up.
func (c *SessionsController) GetSessionStats(ctx context.Context, id uuid.UUID) (*SessionStats, error) {
	session, err := c.sessions.GetSessionByID(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}

	counts, err := c.interviews.CountBySession(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	stageCounts, err := c.drafts.CountBySessionAndStage(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	storyCount, err := c.stories.CountBySession(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}

	totalDrafts := 0
	for _, n := range stageCounts {
		totalDrafts += n
	}
	pct := 0
	if totalDrafts > 0 {
		pct = int(float64(stageCounts[models.DraftApproved])/float64(totalDrafts)*100 + 0.5)
	}

	return &SessionStats{
		SessionID:                 id,
		Status:                    session.Status,
		TotalInterviews:           counts.Total,
		CompletedInterviews:       counts.Completed,
		TotalDrafts:               totalDrafts,
		DraftsByStage:             stageCounts,
		StoryVersions:             int(storyCount),
		StoryCompletionPercentage: pct,
	}, nil
}

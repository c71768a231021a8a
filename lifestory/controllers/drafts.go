// lifestory/controllers/drafts.go
package controllers

import (
	"context"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DraftsController struct {
	db         *gorm.DB
	sessions   *dao.SessionDAO
	interviews *dao.InterviewDAO
	drafts     *dao.DraftDAO
	history    *dao.HistoryDAO
	clock      lifecycle.Clock
	locks      *lifecycle.EntityLocks
}

func NewDraftsController(
	db *gorm.DB,
	sessions *dao.SessionDAO,
	interviews *dao.InterviewDAO,
	drafts *dao.DraftDAO,
	history *dao.HistoryDAO,
	clock lifecycle.Clock,
	locks *lifecycle.EntityLocks,
) *DraftsController {
	return &DraftsController{
		db:         db,
		sessions:   sessions,
		interviews: interviews,
		drafts:     drafts,
		history:    history,
		clock:      clock,
		locks:      locks,
	}
}

type SubmitDraftRequest struct {
	InterviewIDs []uuid.UUID `json:"interview_ids"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
}

// SubmitDraft creates version 1 of a new draft lineage in the transcribed
// stage. Source interviews must belong to the session.
func (c *DraftsController) SubmitDraft(ctx context.Context, actor string, sessionID uuid.UUID, req SubmitDraftRequest) (*models.Draft, error) {
	if req.Content == "" {
		return nil, &lifecycle.ValidationError{Field: "content", Reason: "required"}
	}
	if len(req.InterviewIDs) == 0 {
		return nil, &lifecycle.ValidationError{Field: "interview_ids", Reason: "at least one source interview is required"}
	}

	session, err := c.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}
	owned := make(map[uuid.UUID]struct{}, len(session.Interviews))
	for _, iv := range session.Interviews {
		owned[iv.ID] = struct{}{}
	}
	for _, id := range req.InterviewIDs {
		if _, ok := owned[id]; !ok {
			return nil, &lifecycle.ValidationError{Field: "interview_ids", Reason: "interview " + id.String() + " does not belong to this session"}
		}
	}

	draft := &models.Draft{
		SessionID:          sessionID,
		LineageID:          uuid.New(),
		Version:            1,
		Stage:              models.DraftTranscribed,
		Title:              req.Title,
		Content:            req.Content,
		SourceInterviewIDs: req.InterviewIDs,
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.drafts.WithTx(tx).CreateDraft(ctx, draft); err != nil {
			return err
		}
		return c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType: models.SubjectDraft,
			SubjectID:   draft.ID,
			Action:      ActionDraftSubmitted,
			NewValue:    string(draft.Stage),
			Actor:       actor,
			Timestamp:   c.clock.Now(),
		})
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return draft, nil
}

// AdvanceDraftStage applies a validated stage transition and always records
// the reviewer's reason in the history entry.
func (c *DraftsController) AdvanceDraftStage(ctx context.Context, actor string, draftID uuid.UUID, targetStage, reason string) (*models.Draft, error) {
	requested, err := lifecycle.ParseDraftStage(targetStage)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(draftID)
	defer unlock()

	draft, err := c.drafts.GetDraftByID(ctx, draftID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if draft == nil {
		return nil, lifecycle.ErrNotFound
	}

	if err := lifecycle.ValidateDraft(draft.Stage, requested); err != nil {
		return nil, err
	}

	previous := draft.Stage
	now := c.clock.Now()
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.drafts.WithTx(tx).UpdateDraftStage(ctx, draftID, draft.LockVersion, requested); err != nil {
			return err
		}
		newValue := string(requested)
		if reason != "" {
			newValue = newValue + " (" + reason + ")"
		}
		return c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType:   models.SubjectDraft,
			SubjectID:     draftID,
			Action:        ActionStageChanged,
			PreviousValue: string(previous),
			NewValue:      newValue,
			Actor:         actor,
			Timestamp:     now,
		})
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	draft.Stage = requested
	draft.LockVersion++
	return draft, nil
}

// CreateDraftVersion starts the next version in an existing lineage, back at
// the transcribed stage. Used after a rejection or a conflict resolution; the
// superseded version stays visible in the lineage unchanged.
func (c *DraftsController) CreateDraftVersion(ctx context.Context, actor string, predecessorID uuid.UUID, title, content string) (*models.Draft, error) {
	if content == "" {
		return nil, &lifecycle.ValidationError{Field: "content", Reason: "required"}
	}

	unlock := c.locks.Lock(predecessorID)
	defer unlock()

	predecessor, err := c.drafts.GetDraftByID(ctx, predecessorID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if predecessor == nil {
		return nil, lifecycle.ErrNotFound
	}

	var draft *models.Draft
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		draft, err = c.newLineageVersion(ctx, tx, actor, predecessor, title, content)
		return err
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return draft, nil
}

// newLineageVersion inserts the next version of a lineage inside the caller's
// transaction, so a resolution and its corrected draft commit together.
func (c *DraftsController) newLineageVersion(ctx context.Context, tx *gorm.DB, actor string, predecessor *models.Draft, title, content string) (*models.Draft, error) {
	if title == "" {
		title = predecessor.Title
	}
	predID := predecessor.ID
	draft := &models.Draft{
		SessionID:          predecessor.SessionID,
		LineageID:          predecessor.LineageID,
		PredecessorID:      &predID,
		Stage:              models.DraftTranscribed,
		Title:              title,
		Content:            content,
		SourceInterviewIDs: predecessor.SourceInterviewIDs,
	}

	version, err := c.drafts.WithTx(tx).NextLineageVersion(ctx, predecessor.LineageID)
	if err != nil {
		return nil, err
	}
	draft.Version = version
	if err := c.drafts.WithTx(tx).CreateDraft(ctx, draft); err != nil {
		return nil, err
	}
	err = c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
		SubjectType:   models.SubjectDraft,
		SubjectID:     draft.ID,
		Action:        ActionDraftSubmitted,
		PreviousValue: predecessor.ID.String(),
		NewValue:      string(draft.Stage),
		Actor:         actor,
		Timestamp:     c.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (c *DraftsController) GetDraftsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Draft, error) {
	drafts, err := c.drafts.GetDraftsBySession(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return drafts, nil
}

// GetDraftHistory returns every version of the draft's lineage, oldest
// first, including rejected versions.
func (c *DraftsController) GetDraftHistory(ctx context.Context, draftID uuid.UUID) ([]models.Draft, error) {
	draft, err := c.drafts.GetDraftByID(ctx, draftID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if draft == nil {
		return nil, lifecycle.ErrNotFound
	}
	lineage, err := c.drafts.GetDraftLineage(ctx, draft.LineageID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return lineage, nil
}

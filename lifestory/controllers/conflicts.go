// lifestory/controllers/conflicts.go
package controllers

import (
	"context"

	"lifestory/lifestory/services/conflicts"
	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConflictsController struct {
	db        *gorm.DB
	detector  *conflicts.Detector
	conflicts *dao.ConflictDAO
	draftsCtl *DraftsController
	history   *dao.HistoryDAO
	clock     lifecycle.Clock
	locks     *lifecycle.EntityLocks
}

func NewConflictsController(
	db *gorm.DB,
	detector *conflicts.Detector,
	conflictsDAO *dao.ConflictDAO,
	draftsCtl *DraftsController,
	history *dao.HistoryDAO,
	clock lifecycle.Clock,
	locks *lifecycle.EntityLocks,
) *ConflictsController {
	return &ConflictsController{
		db:        db,
		detector:  detector,
		conflicts: conflictsDAO,
		draftsCtl: draftsCtl,
		history:   history,
		clock:     clock,
		locks:     locks,
	}
}

// DetectConflicts runs the advisory scan across the session's drafts.
func (c *ConflictsController) DetectConflicts(ctx context.Context, sessionID uuid.UUID) ([]models.Conflict, error) {
	return c.detector.DetectConflicts(ctx, sessionID)
}

func (c *ConflictsController) GetConflictsBySession(ctx context.Context, sessionID uuid.UUID, unresolvedOnly bool) ([]models.Conflict, error) {
	found, err := c.conflicts.GetConflictsBySession(ctx, sessionID, unresolvedOnly)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return found, nil
}

type ResolveConflictRequest struct {
	Resolution string `json:"resolution"`
	// When set, the resolution also revises this draft to a new version
	// carrying the corrected content.
	EditDraftID      *uuid.UUID `json:"edit_draft_id,omitempty"`
	CorrectedContent string     `json:"corrected_content,omitempty"`
}

// ResolveConflict marks a conflict resolved, appends the audit entry, and
// optionally spins the corrected draft into a new version. The resolution and
// the revision commit in one transaction: a failed revision leaves the
// conflict unresolved.
func (c *ConflictsController) ResolveConflict(ctx context.Context, actor string, conflictID uuid.UUID, req ResolveConflictRequest) (*models.Conflict, error) {
	if req.Resolution == "" {
		return nil, &lifecycle.ValidationError{Field: "resolution", Reason: "required"}
	}
	if req.EditDraftID != nil && req.CorrectedContent == "" {
		return nil, &lifecycle.ValidationError{Field: "corrected_content", Reason: "required when edit_draft_id is set"}
	}

	unlock := c.locks.Lock(conflictID)
	defer unlock()

	conflict, err := c.conflicts.GetConflictByID(ctx, conflictID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if conflict == nil {
		return nil, lifecycle.ErrNotFound
	}
	if conflict.Resolved {
		return nil, &lifecycle.ValidationError{Field: "conflict_id", Reason: "already resolved"}
	}

	var predecessor *models.Draft
	if req.EditDraftID != nil {
		unlockDraft := c.locks.Lock(*req.EditDraftID)
		defer unlockDraft()
		predecessor, err = c.draftsCtl.drafts.GetDraftByID(ctx, *req.EditDraftID)
		if err != nil {
			return nil, wrapStorage(err)
		}
		if predecessor == nil {
			return nil, lifecycle.ErrNotFound
		}
	}

	now := c.clock.Now()
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.conflicts.WithTx(tx).MarkResolved(ctx, conflictID, actor, now); err != nil {
			return err
		}
		if err := c.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType:   models.SubjectConflict,
			SubjectID:     conflictID,
			Action:        ActionConflictResolved,
			PreviousValue: conflict.Field,
			NewValue:      req.Resolution,
			Actor:         actor,
			Timestamp:     now,
		}); err != nil {
			return err
		}
		if predecessor != nil {
			if _, err := c.draftsCtl.newLineageVersion(ctx, tx, actor, predecessor, "", req.CorrectedContent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(err)
	}

	conflict.Resolved = true
	conflict.ResolvedBy = actor
	conflict.ResolvedAt = &now
	return conflict, nil
}

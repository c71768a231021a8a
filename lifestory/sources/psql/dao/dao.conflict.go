// lifestory/sources/psql/dao/dao.conflict.go
package dao

import (
	"context"
	"time"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConflictDAO struct {
	DB *gorm.DB
}

func NewConflictDAO(db *gorm.DB) *ConflictDAO {
	return &ConflictDAO{DB: db}
}

func (dao *ConflictDAO) WithTx(tx *gorm.DB) *ConflictDAO {
	return &ConflictDAO{DB: tx}
}

// UpsertConflict stores a detected conflict once per (session, pair, field).
// Re-detection of a known conflict is a no-op and keeps any resolution state.
func (dao *ConflictDAO) UpsertConflict(ctx context.Context, conflict *models.Conflict) error {
	// BeforeCreate normalizes pair order; normalize here too so the lookup
	// matches the stored row.
	if conflict.DraftBID.String() < conflict.DraftAID.String() {
		conflict.DraftAID, conflict.DraftBID = conflict.DraftBID, conflict.DraftAID
	}
	var existing models.Conflict
	err := dao.DB.WithContext(ctx).
		Where("session_id = ? AND draft_a_id = ? AND draft_b_id = ? AND field = ?",
			conflict.SessionID, conflict.DraftAID, conflict.DraftBID, conflict.Field).
		First(&existing).Error
	if err == nil {
		*conflict = existing
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return dao.DB.WithContext(ctx).Create(conflict).Error
}

func (dao *ConflictDAO) GetConflictByID(ctx context.Context, id uuid.UUID) (*models.Conflict, error) {
	var conflict models.Conflict
	err := dao.DB.WithContext(ctx).First(&conflict, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

func (dao *ConflictDAO) GetConflictsBySession(ctx context.Context, sessionID uuid.UUID, unresolvedOnly bool) ([]models.Conflict, error) {
	q := dao.DB.WithContext(ctx).Where("session_id = ?", sessionID)
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var conflicts []models.Conflict
	err := q.Order("created_at asc").Find(&conflicts).Error
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// MarkResolved flips an unresolved conflict to resolved. ErrStaleState when
// the row is already resolved, so a second concurrent resolver fails instead
// of overwriting the first one's outcome.
func (dao *ConflictDAO) MarkResolved(ctx context.Context, id uuid.UUID, resolvedBy string, resolvedAt time.Time) error {
	res := dao.DB.WithContext(ctx).
		Model(&models.Conflict{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_by": resolvedBy,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrStaleState
	}
	return nil
}

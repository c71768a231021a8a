// lifestory/sources/psql/dao/dao.draft.go
package dao

import (
	"context"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DraftDAO struct {
	DB *gorm.DB
}

func NewDraftDAO(db *gorm.DB) *DraftDAO {
	return &DraftDAO{DB: db}
}

func (dao *DraftDAO) WithTx(tx *gorm.DB) *DraftDAO {
	return &DraftDAO{DB: tx}
}

func (dao *DraftDAO) CreateDraft(ctx context.Context, draft *models.Draft) error {
	return dao.DB.WithContext(ctx).Create(draft).Error
}

func (dao *DraftDAO) GetDraftByID(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	var draft models.Draft
	err := dao.DB.WithContext(ctx).First(&draft, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (dao *DraftDAO) GetDraftsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Draft, error) {
	var drafts []models.Draft
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (dao *DraftDAO) GetDraftsBySessionAndStage(ctx context.Context, sessionID uuid.UUID, stage models.DraftStage) ([]models.Draft, error) {
	var drafts []models.Draft
	err := dao.DB.WithContext(ctx).
		Where("session_id = ? AND stage = ?", sessionID, stage).
		Order("created_at asc").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// GetDraftLineage returns every version of one logical draft, oldest first.
// Rejected versions stay visible here unchanged.
func (dao *DraftDAO) GetDraftLineage(ctx context.Context, lineageID uuid.UUID) ([]models.Draft, error) {
	var drafts []models.Draft
	err := dao.DB.WithContext(ctx).
		Where("lineage_id = ?", lineageID).
		Order("version asc").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// NextLineageVersion computes max(version)+1 for a lineage. Runs inside the
// caller's transaction; the unique index on (lineage_id, version) backstops
// any race between two writers.
func (dao *DraftDAO) NextLineageVersion(ctx context.Context, lineageID uuid.UUID) (int, error) {
	var maxVersion int
	err := dao.DB.WithContext(ctx).
		Model(&models.Draft{}).
		Where("lineage_id = ?", lineageID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func (dao *DraftDAO) CountBySessionAndStage(ctx context.Context, sessionID uuid.UUID) (map[models.DraftStage]int, error) {
	var drafts []models.Draft
	err := dao.DB.WithContext(ctx).
		Select("stage").
		Where("session_id = ?", sessionID).
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.DraftStage]int)
	for _, d := range drafts {
		counts[d.Stage]++
	}
	return counts, nil
}

// UpdateDraftStage applies an optimistic stage update; ErrStaleState when the
// row moved under the caller.
func (dao *DraftDAO) UpdateDraftStage(ctx context.Context, id uuid.UUID, lockVersion int, stage models.DraftStage) error {
	res := dao.DB.WithContext(ctx).
		Model(&models.Draft{}).
		Where("id = ? AND lock_version = ?", id, lockVersion).
		Updates(map[string]interface{}{
			"stage":        stage,
			"lock_version": lockVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrStaleState
	}
	return nil
}

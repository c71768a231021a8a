// lifestory/sources/psql/dao/dao.history.go
package dao

import (
	"context"
	"time"

	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryDAO appends to and reads the audit log. The log is append-only:
// there are deliberately no update or delete methods on this type.
type HistoryDAO struct {
	DB *gorm.DB
}

func NewHistoryDAO(db *gorm.DB) *HistoryDAO {
	return &HistoryDAO{DB: db}
}

func (dao *HistoryDAO) WithTx(tx *gorm.DB) *HistoryDAO {
	return &HistoryDAO{DB: tx}
}

// Append records one audit entry, assigning the next per-subject sequence
// number. Must run inside the same transaction as the mutation it describes
// so the two commit or roll back together.
func (dao *HistoryDAO) Append(ctx context.Context, entry *models.HistoryEntry) error {
	var maxSeq int64
	err := dao.DB.WithContext(ctx).
		Model(&models.HistoryEntry{}).
		Where("subject_id = ?", entry.SubjectID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return err
	}
	entry.Seq = maxSeq + 1
	return dao.DB.WithContext(ctx).Create(entry).Error
}

// HistoryFilter narrows GetHistory. Zero values mean "no constraint".
type HistoryFilter struct {
	Action string
	Actor  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// GetHistory returns a subject's entries ordered by timestamp, with the
// per-subject sequence breaking timestamp ties deterministically.
func (dao *HistoryDAO) GetHistory(ctx context.Context, subjectID uuid.UUID, filter HistoryFilter) ([]models.HistoryEntry, error) {
	q := dao.DB.WithContext(ctx).
		Model(&models.HistoryEntry{}).
		Where("subject_id = ?", subjectID)
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp <= ?", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var entries []models.HistoryEntry
	err := q.Order("timestamp asc, seq asc").Limit(limit).Offset(filter.Offset).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

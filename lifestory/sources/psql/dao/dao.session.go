// lifestory/sources/psql/dao/dao.session.go
package dao

import (
	"context"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionDAO struct {
	DB *gorm.DB
}

func NewSessionDAO(db *gorm.DB) *SessionDAO {
	return &SessionDAO{DB: db}
}

// WithTx returns a DAO bound to a running transaction.
func (dao *SessionDAO) WithTx(tx *gorm.DB) *SessionDAO {
	return &SessionDAO{DB: tx}
}

// ListSessionsFilter narrows and pages ListSessions. Zero values mean "no
// constraint"; Limit 0 falls back to 50.
type ListSessionsFilter struct {
	Status     models.SessionStatus
	Priority   models.PriorityLevel
	ClientName string // substring match
	SortBy     string // created_at | updated_at
	SortDesc   bool
	Limit      int
	Offset     int
}

func (dao *SessionDAO) CreateSession(ctx context.Context, session *models.Session) error {
	return dao.DB.WithContext(ctx).Create(session).Error
}

func (dao *SessionDAO) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := dao.DB.WithContext(ctx).Preload("Interviews").First(&session, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (dao *SessionDAO) ListSessions(ctx context.Context, filter ListSessionsFilter) ([]models.Session, int64, error) {
	q := dao.DB.WithContext(ctx).Model(&models.Session{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority_level = ?", filter.Priority)
	}
	if filter.ClientName != "" {
		q = q.Where("client_name LIKE ?", "%"+filter.ClientName+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if sortBy != "created_at" && sortBy != "updated_at" {
		sortBy = "created_at"
	}
	order := sortBy + " asc"
	if filter.SortDesc {
		order = sortBy + " desc"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var sessions []models.Session
	err := q.Order(order).Limit(limit).Offset(filter.Offset).Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// UpdateSessionStatus applies an optimistic status update: the row must still
// carry the lock version the caller read, otherwise ErrStaleState.
func (dao *SessionDAO) UpdateSessionStatus(ctx context.Context, id uuid.UUID, lockVersion int, status models.SessionStatus) error {
	res := dao.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND lock_version = ?", id, lockVersion).
		Updates(map[string]interface{}{
			"status":       status,
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

// DeleteSession removes the session and everything it exclusively owns.
// History entries survive (append-only audit); stories reference drafts
// weakly, so generated stories are removed with their owning session only.
func (dao *SessionDAO) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.Conflict{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.Draft{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.Interview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.FullLifeStory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, "id = ?", id).Error
	})
}

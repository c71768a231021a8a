// lifestory/sources/psql/dao/dao.interview.go
package dao

import (
	"context"
	"time"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewDAO struct {
	DB *gorm.DB
}

func NewInterviewDAO(db *gorm.DB) *InterviewDAO {
	return &InterviewDAO{DB: db}
}

func (dao *InterviewDAO) WithTx(tx *gorm.DB) *InterviewDAO {
	return &InterviewDAO{DB: tx}
}

func (dao *InterviewDAO) CreateInterview(ctx context.Context, interview *models.Interview) error {
	return dao.DB.WithContext(ctx).Create(interview).Error
}

func (dao *InterviewDAO) GetInterviewByID(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	var interview models.Interview
	err := dao.DB.WithContext(ctx).First(&interview, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// GetInterviewsBySession returns the session's interviews in chronological
// order of their scheduled slot. Aggregation relies on this ordering.
func (dao *InterviewDAO) GetInterviewsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Interview, error) {
	var interviews []models.Interview
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("scheduled_at asc").
		Find(&interviews).Error
	if err != nil {
		return nil, err
	}
	return interviews, nil
}

// InterviewCounts are the derived metrics callers display next to a session.
type InterviewCounts struct {
	Total      int
	Completed  int
	Unresolved int // scheduled or in_progress
}

func (dao *InterviewDAO) CountBySession(ctx context.Context, sessionID uuid.UUID) (InterviewCounts, error) {
	var interviews []models.Interview
	err := dao.DB.WithContext(ctx).
		Select("status").
		Where("session_id = ?", sessionID).
		Find(&interviews).Error
	if err != nil {
		return InterviewCounts{}, err
	}
	counts := InterviewCounts{Total: len(interviews)}
	for _, iv := range interviews {
		switch iv.Status {
		case models.InterviewCompleted:
			counts.Completed++
		case models.InterviewScheduled, models.InterviewInProgress:
			counts.Unresolved++
		}
	}
	return counts, nil
}

// InterviewStatusUpdate carries the fields recordInterviewResult may set
// alongside the status itself.
type InterviewStatusUpdate struct {
	Status      models.InterviewStatus
	CompletedAt *time.Time
	Interviewer *string
}

// UpdateInterviewStatus applies an optimistic update; ErrStaleState when the
// row moved under the caller.
func (dao *InterviewDAO) UpdateInterviewStatus(ctx context.Context, id uuid.UUID, lockVersion int, upd InterviewStatusUpdate) error {
	fields := map[string]interface{}{
		"status":       upd.Status,
		"lock_version": lockVersion + 1,
	}
	if upd.CompletedAt != nil {
		fields["completed_at"] = upd.CompletedAt
	}
	if upd.Interviewer != nil {
		fields["interviewer"] = upd.Interviewer
	}
	res := dao.DB.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ? AND lock_version = ?", id, lockVersion).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrStaleState
	}
	return nil
}

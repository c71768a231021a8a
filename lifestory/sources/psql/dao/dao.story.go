// lifestory/sources/psql/dao/dao.story.go
package dao

import (
	"context"
	"strings"

	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoryDAO struct {
	DB *gorm.DB
}

func NewStoryDAO(db *gorm.DB) *StoryDAO {
	return &StoryDAO{DB: db}
}

func (dao *StoryDAO) WithTx(tx *gorm.DB) *StoryDAO {
	return &StoryDAO{DB: tx}
}

// CreateStory inserts a new immutable story version. A unique-index violation
// on (session_id, version) means another aggregation won the version race;
// reported as duplicate so the aggregator can retry with a fresh number.
func (dao *StoryDAO) CreateStory(ctx context.Context, story *models.FullLifeStory) error {
	return dao.DB.WithContext(ctx).Create(story).Error
}

// IsDuplicateVersion reports whether err is the unique-index violation for
// the (session_id, version) pair. Matched on message to stay portable across
// the postgres and sqlite drivers.
func IsDuplicateVersion(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (dao *StoryDAO) GetStoryByID(ctx context.Context, id uuid.UUID) (*models.FullLifeStory, error) {
	var story models.FullLifeStory
	err := dao.DB.WithContext(ctx).First(&story, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// GetStoryVersions returns all versions for a session, newest first.
func (dao *StoryDAO) GetStoryVersions(ctx context.Context, sessionID uuid.UUID) ([]models.FullLifeStory, error) {
	var stories []models.FullLifeStory
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version desc").
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}

func (dao *StoryDAO) MaxVersion(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var maxVersion int
	err := dao.DB.WithContext(ctx).
		Model(&models.FullLifeStory{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion, nil
}

func (dao *StoryDAO) CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := dao.DB.WithContext(ctx).
		Model(&models.FullLifeStory{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

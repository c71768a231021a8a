// lifestory/sources/psql/models/story.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StorySection is one merged chapter of a FullLifeStory, ordered by the
// chronology of the interviews it came from.
type StorySection struct {
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	InterviewType InterviewType `json:"interview_type,omitempty"`
	WordCount     int           `json:"word_count"`
}

// FullLifeStory is an aggregated narrative built from approved drafts.
// Rows are immutable once created: corrections produce a new version, and the
// (session_id, version) unique index rejects concurrent duplicates.
type FullLifeStory struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID      `json:"session_id" gorm:"type:uuid;not null;uniqueIndex:idx_stories_session_version"`
	Version   int            `json:"version" gorm:"not null;uniqueIndex:idx_stories_session_version"`
	Title     string         `json:"title" gorm:"type:varchar(255)"`
	Summary   string         `json:"summary" gorm:"type:text"`
	Sections  []StorySection `json:"sections" gorm:"serializer:json"`
	KeyThemes []string       `json:"key_themes" gorm:"serializer:json"`

	TotalWords int `json:"total_words" gorm:"not null;default:0"`

	// source_metadata: drafts that fed this version, counted and referenced
	// weakly by id (a later draft deletion never breaks a generated story).
	ApprovedDrafts int         `json:"approved_drafts" gorm:"not null;default:0"`
	SourceDraftIDs []uuid.UUID `json:"source_draft_ids" gorm:"serializer:json"`

	// generation_stats
	ProcessingTimeMs int64  `json:"processing_time_ms" gorm:"not null;default:0"`
	AIModel          string `json:"ai_model" gorm:"type:varchar(128)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (FullLifeStory) TableName() string {
	return "full_life_stories"
}

func (s *FullLifeStory) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// lifestory/sources/psql/models/draft.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DraftStage string

const (
	DraftTranscribed DraftStage = "transcribed"
	DraftReviewed    DraftStage = "reviewed"
	DraftApproved    DraftStage = "approved"
	DraftRejected    DraftStage = "rejected"
)

// Draft is one version of a stage-gated content unit derived from interviews.
// Versions sharing a LineageID form a linear chain: each new version records
// its predecessor and restarts at "transcribed". The (lineage_id, version)
// unique index makes version assignment race-safe.
type Draft struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID     uuid.UUID  `json:"session_id" gorm:"type:uuid;not null;index"`
	LineageID     uuid.UUID  `json:"lineage_id" gorm:"type:uuid;not null;uniqueIndex:idx_drafts_lineage_version"`
	Version       int        `json:"version" gorm:"not null;uniqueIndex:idx_drafts_lineage_version"`
	PredecessorID *uuid.UUID `json:"predecessor_id,omitempty" gorm:"type:uuid"`
	Stage         DraftStage `json:"stage" gorm:"type:varchar(32);not null;default:'transcribed';index"`
	Title         string     `json:"title" gorm:"type:varchar(255)"`
	Content       string     `json:"content" gorm:"type:text;not null"`

	// Interviews this draft was transcribed from. Weak references: deleting
	// an interview does not rewrite existing drafts.
	SourceInterviewIDs []uuid.UUID `json:"source_interview_ids" gorm:"serializer:json"`

	LockVersion int `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Draft) TableName() string {
	return "drafts"
}

func (d *Draft) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// lifestory/sources/psql/models/history.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubjectType string

const (
	SubjectSession   SubjectType = "session"
	SubjectInterview SubjectType = "interview"
	SubjectDraft     SubjectType = "draft"
	SubjectStory     SubjectType = "full_life_story"
	SubjectConflict  SubjectType = "conflict"
)

// HistoryEntry is an immutable audit record. The DAO exposes no update or
// delete for this table; Seq is assigned per subject inside the mutating
// transaction and breaks timestamp ties deterministically.
type HistoryEntry struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectType   SubjectType `json:"subject_type" gorm:"type:varchar(32);not null"`
	SubjectID     uuid.UUID   `json:"subject_id" gorm:"type:uuid;not null;uniqueIndex:idx_history_subject_seq"`
	Seq           int64       `json:"seq" gorm:"not null;uniqueIndex:idx_history_subject_seq"`
	Action        string      `json:"action" gorm:"type:varchar(64);not null;index"`
	PreviousValue string      `json:"previous_value" gorm:"type:text"`
	NewValue      string      `json:"new_value" gorm:"type:text"`
	Actor         string      `json:"actor" gorm:"type:varchar(255);not null;index"`
	Timestamp     time.Time   `json:"timestamp" gorm:"not null;index"`
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}

func (h *HistoryEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

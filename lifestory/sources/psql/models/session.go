// lifestory/sources/psql/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the closed lifecycle vocabulary for a Session. Transitions
// between values are gated by the lifecycle validator; unknown strings are
// rejected at the boundary rather than stored.
type SessionStatus string

const (
	SessionScheduled     SessionStatus = "scheduled"
	SessionInProgress    SessionStatus = "in_progress"
	SessionPendingReview SessionStatus = "pending_review"
	SessionCompleted     SessionStatus = "completed"
)

type PriorityLevel string

const (
	PriorityStandard PriorityLevel = "standard"
	PriorityMedium   PriorityLevel = "medium"
	PriorityHigh     PriorityLevel = "high"
)

// SessionPreferences is the client's intake questionnaire, stored as one JSON
// column rather than normalized tables.
type SessionPreferences struct {
	FocusAreas   []string `json:"focus_areas,omitempty"`
	Tone         string   `json:"tone,omitempty"`
	TargetLength int      `json:"target_length,omitempty"`
}

// Session is one client's end-to-end life-story engagement. It exclusively
// owns its Interviews and Drafts (cascade on delete); FullLifeStory versions
// reference Drafts only by id.
type Session struct {
	ID                   uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	ClientName           string             `json:"client_name" gorm:"type:varchar(255);not null"`
	ClientContact        string             `json:"client_contact" gorm:"type:varchar(255)"`
	Status               SessionStatus      `json:"status" gorm:"type:varchar(32);not null;default:'scheduled';index"`
	PriorityLevel        PriorityLevel      `json:"priority_level" gorm:"type:varchar(32);not null;default:'standard'"`
	EstimatedDurationMin int                `json:"estimated_duration" gorm:"not null;default:0"`
	Preferences          SessionPreferences `json:"preferences" gorm:"serializer:json"`

	// LockVersion backs the optimistic-concurrency check on status updates.
	LockVersion int `json:"-" gorm:"not null;default:0"`

	Interviews []Interview `json:"interviews,omitempty" gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`
	Drafts     []Draft     `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// lifestory/sources/psql/models/interview.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewStatus string

const (
	InterviewScheduled  InterviewStatus = "scheduled"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewCancelled  InterviewStatus = "cancelled"
)

type InterviewType string

const (
	InterviewPersonalBackground  InterviewType = "personal_background"
	InterviewCareerAchievements  InterviewType = "career_achievements"
	InterviewRelationshipsFamily InterviewType = "relationships_family"
	InterviewLifeEvents          InterviewType = "life_events_milestones"
	InterviewWisdomReflection    InterviewType = "wisdom_reflection"
	InterviewFriend              InterviewType = "friend"
)

// Interview is one scheduled or completed recording unit inside a Session.
// CompletedAt is set when the interview reaches "completed" and must not
// precede ScheduledAt.
type Interview struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID   uuid.UUID       `json:"session_id" gorm:"type:uuid;not null;index"`
	Type        InterviewType   `json:"type" gorm:"type:varchar(64);not null"`
	ScheduledAt time.Time       `json:"scheduled_at" gorm:"not null"`
	DurationMin int             `json:"duration" gorm:"not null;default:0"`
	Location    string          `json:"location" gorm:"type:varchar(255)"`
	Status      InterviewStatus `json:"status" gorm:"type:varchar(32);not null;default:'scheduled';index"`
	Interviewer *string         `json:"interviewer,omitempty" gorm:"type:varchar(255)"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	LockVersion int `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Interview) TableName() string {
	return "interviews"
}

func (i *Interview) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Resolved reports whether the interview no longer blocks session review.
func (i *Interview) Resolved() bool {
	return i.Status == InterviewCompleted || i.Status == InterviewCancelled
}

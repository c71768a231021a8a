// lifestory/sources/psql/models/conflict.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conflict flags two drafts of one session whose claims for the same semantic
// slot disagree. DraftAID and DraftBID are stored in sorted order so the
// unique index deduplicates the unordered pair regardless of which direction
// the detector scanned.
type Conflict struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID   uuid.UUID `json:"session_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_conflicts_pair_field"`
	DraftAID    uuid.UUID `json:"draft_a_id" gorm:"type:uuid;not null;uniqueIndex:idx_conflicts_pair_field"`
	DraftBID    uuid.UUID `json:"draft_b_id" gorm:"type:uuid;not null;uniqueIndex:idx_conflicts_pair_field"`
	Field       string    `json:"field" gorm:"type:varchar(128);not null;uniqueIndex:idx_conflicts_pair_field"`
	Description string    `json:"description" gorm:"type:text"`

	Resolved   bool       `json:"resolved" gorm:"not null;default:false"`
	ResolvedBy string     `json:"resolved_by,omitempty" gorm:"type:varchar(255)"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Conflict) TableName() string {
	return "conflicts"
}

func (c *Conflict) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	// normalized pair ordering
	if c.DraftBID.String() < c.DraftAID.String() {
		c.DraftAID, c.DraftBID = c.DraftBID, c.DraftAID
	}
	return nil
}

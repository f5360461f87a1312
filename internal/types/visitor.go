package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visitor is an anonymous end user identified by a client-held session token.
// The token is stable across reconnects; the row is created on first contact
// and never deleted here (retention is an external policy).
type Visitor struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionToken string    `gorm:"column:session_token;not null;uniqueIndex" json:"session_token"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `gorm:"column:user_agent" json:"user_agent,omitempty"`
	IsActive     bool      `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	LastSeenAt   time.Time `gorm:"column:last_seen_at;not null" json:"last_seen_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Visitor) TableName() string { return "visitor" }

func (v *Visitor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

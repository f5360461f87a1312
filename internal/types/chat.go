package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChatStatusActive = "active"
	ChatStatusClosed = "closed"
)

// Chat is the ongoing exchange between one visitor and the operator pool.
// At most one active chat exists per visitor at any time; a partial unique
// index on (visitor_id) WHERE status='active' enforces it (see db package).
type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VisitorID uuid.UUID `gorm:"type:uuid;column:visitor_id;not null;index" json:"visitor_id"`
	Status    string    `gorm:"column:status;not null;default:'active';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Chat) TableName() string { return "chat" }

func (ch *Chat) BeforeCreate(tx *gorm.DB) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	return nil
}

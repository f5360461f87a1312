package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderVisitor   = "visitor"
	SenderOperator  = "operator"
	SenderAssistant = "assistant"
)

// Message is append-only. Within a chat the total order is
// (timestamp asc, id asc); the autoincrement id breaks timestamp ties.
type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uuid.UUID `gorm:"type:uuid;column:chat_id;not null;index" json:"chat_id"`
	Sender    string    `gorm:"column:sender;not null" json:"sender"`
	Body      string    `gorm:"column:body;type:text;not null" json:"body"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Message) TableName() string { return "message" }

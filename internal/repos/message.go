package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

type MessageRepo interface {
	Append(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, sender, body string, timestamp time.Time) (*types.Message, error)
	// ListByChat returns messages in delivery order: timestamp asc, id asc.
	ListByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, limit, offset int) ([]*types.Message, error)
	// ListRecent returns the most recent n messages, oldest first.
	ListRecent(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, n int) ([]*types.Message, error)
	CountByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) (int64, error)
	LatestByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) (*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (mr *messageRepo) Append(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, sender, body string, timestamp time.Time) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	msg := types.Message{
		ChatID:    chatID,
		Sender:    sender,
		Body:      body,
		Timestamp: timestamp,
	}
	if err := transaction.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (mr *messageRepo) ListByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, limit, offset int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	q := transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var messages []*types.Message
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (mr *messageRepo) ListRecent(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, n int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var messages []*types.Message
	if err := transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp DESC, id DESC").
		Limit(n).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Flip newest-first into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (mr *messageRepo) CountByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (mr *messageRepo) LatestByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var msg types.Message
	if err := transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp DESC, id DESC").
		First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

type ChatRepo interface {
	// FindOrCreateActive returns the visitor's single active chat, creating it
	// lazily. Safe against concurrent callers: the partial unique index on
	// (visitor_id) WHERE status='active' turns the create race into a conflict
	// that is resolved by re-reading.
	FindOrCreateActive(ctx context.Context, tx *gorm.DB, visitorID uuid.UUID) (*types.Chat, error)
	GetActiveByVisitor(ctx context.Context, tx *gorm.DB, visitorID uuid.UUID) (*types.Chat, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chat, error)
	List(ctx context.Context, tx *gorm.DB, status string, limit, offset int) ([]*types.Chat, error)
	Count(ctx context.Context, tx *gorm.DB, status string) (int64, error)
	Close(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chat, error)
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (cr *chatRepo) FindOrCreateActive(ctx context.Context, tx *gorm.DB, visitorID uuid.UUID) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var chat types.Chat
	err := transaction.WithContext(ctx).
		Where("visitor_id = ? AND status = ?", visitorID, types.ChatStatusActive).
		First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	chat = types.Chat{VisitorID: visitorID, Status: types.ChatStatusActive}
	cErr := transaction.WithContext(ctx).Create(&chat).Error
	if cErr == nil {
		return &chat, nil
	}

	// A concurrent identify won the create; take its row.
	if isUniqueViolation(cErr) {
		var existing types.Chat
		if rErr := transaction.WithContext(ctx).
			Where("visitor_id = ? AND status = ?", visitorID, types.ChatStatusActive).
			First(&existing).Error; rErr != nil {
			return nil, rErr
		}
		return &existing, nil
	}
	return nil, cErr
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (cr *chatRepo) GetActiveByVisitor(ctx context.Context, tx *gorm.DB, visitorID uuid.UUID) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var chat types.Chat
	if err := transaction.WithContext(ctx).
		Where("visitor_id = ? AND status = ?", visitorID, types.ChatStatusActive).
		First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (cr *chatRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var chat types.Chat
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (cr *chatRepo) List(ctx context.Context, tx *gorm.DB, status string, limit, offset int) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	q := transaction.WithContext(ctx).Model(&types.Chat{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var chats []*types.Chat
	if err := q.Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func (cr *chatRepo) Count(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	q := transaction.WithContext(ctx).Model(&types.Chat{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (cr *chatRepo) Close(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var chat types.Chat
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&chat).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Model(&chat).
		Update("status", types.ChatStatusClosed).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

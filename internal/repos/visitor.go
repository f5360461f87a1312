package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

type VisitorRepo interface {
	// UpsertByToken creates the visitor on first contact with a given session
	// token, otherwise marks it online and refreshes network metadata.
	UpsertByToken(ctx context.Context, tx *gorm.DB, token, ipAddress, userAgent string) (*types.Visitor, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.Visitor, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Visitor, error)
	MarkOffline(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastSeenAt time.Time) error
}

type visitorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVisitorRepo(db *gorm.DB, baseLog *logger.Logger) VisitorRepo {
	return &visitorRepo{db: db, log: baseLog.With("repo", "VisitorRepo")}
}

func (vr *visitorRepo) UpsertByToken(ctx context.Context, tx *gorm.DB, token, ipAddress, userAgent string) (*types.Visitor, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	now := time.Now().UTC()

	var visitor types.Visitor
	err := transaction.WithContext(ctx).
		Where("session_token = ?", token).
		First(&visitor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		visitor = types.Visitor{
			SessionToken: token,
			IPAddress:    ipAddress,
			UserAgent:    userAgent,
			IsActive:     true,
			LastSeenAt:   now,
		}
		if cErr := transaction.WithContext(ctx).Create(&visitor).Error; cErr != nil {
			return nil, cErr
		}
		return &visitor, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"is_active":    true,
		"last_seen_at": now,
	}
	if ipAddress != "" {
		updates["ip_address"] = ipAddress
	}
	if userAgent != "" {
		updates["user_agent"] = userAgent
	}
	if err := transaction.WithContext(ctx).
		Model(&visitor).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return &visitor, nil
}

func (vr *visitorRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.Visitor, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var visitor types.Visitor
	if err := transaction.WithContext(ctx).
		Where("session_token = ?", token).
		First(&visitor).Error; err != nil {
		return nil, err
	}
	return &visitor, nil
}

func (vr *visitorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Visitor, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var visitor types.Visitor
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&visitor).Error; err != nil {
		return nil, err
	}
	return &visitor, nil
}

func (vr *visitorRepo) MarkOffline(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastSeenAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Visitor{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":    false,
			"last_seen_at": lastSeenAt,
		}).Error
}

package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/types"
	"github.com/meetdshah26/backend-chatbot/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	port := utils.GetEnv("POSTGRES_PORT", "5432", log)
	user := utils.GetEnv("POSTGRES_USER", "postgres", log)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	name := utils.GetEnv("POSTGRES_NAME", "chatbot", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.Visitor{},
		&types.Chat{},
		&types.Message{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// One active chat per visitor; the find-or-create path relies on this.
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS "uq_chat_active_per_visitor"
		ON "chat" ("visitor_id")
		WHERE "status" = 'active'
	`).Error; err != nil {
		return fmt.Errorf("create uq_chat_active_per_visitor: %w", err)
	}

	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS "idx_message_chat_order"
		ON "message" ("chat_id", "timestamp", "id")
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_chat_order: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petmily/billing-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Subscription{},
		&model.Payment{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// At most one active subscription per account, enforced at the storage
	// level. Concurrent confirmations race down to this index.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_subscription_per_account ON subscriptions (account_id) WHERE status = 'active'`).Error; err != nil {
		return err
	}

	// Unlinked ledger rows are the reconciliation backlog
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_unlinked ON payments (created_at) WHERE subscription_id IS NULL`).Error; err != nil {
		return err
	}

	return nil
}
